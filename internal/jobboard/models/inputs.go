package models

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// JobInput carries the employer-editable fields of a job posting.
type JobInput struct {
	Title          string         `json:"title" validate:"required,max=200"`
	Description    string         `json:"description" validate:"required,max=10000"`
	Requirements   string         `json:"requirements" validate:"max=10000"`
	Location       string         `json:"location" validate:"max=200"`
	Country        string         `json:"country" validate:"max=100"`
	EmploymentType EmploymentType `json:"employmentType" validate:"omitempty,oneof=full_time part_time contract internship temporary"`
	SalaryMin      *int           `json:"salaryMin" validate:"omitempty,gte=0"`
	SalaryMax      *int           `json:"salaryMax" validate:"omitempty,gte=0"`
	Tags           []string       `json:"tags" validate:"max=50,dive,max=50"`
	Skills         []string       `json:"skills" validate:"max=100,dive,max=100"`
	Status         JobStatus      `json:"status" validate:"omitempty,oneof=open closed"`
}

// Normalize trims text fields, deduplicates sets and applies defaults.
func (in *JobInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Requirements = strings.TrimSpace(in.Requirements)
	in.Location = strings.TrimSpace(in.Location)
	in.Country = strings.TrimSpace(in.Country)
	in.Tags = NormalizeSet(in.Tags)
	in.Skills = NormalizeSet(in.Skills)
	if in.EmploymentType == "" {
		in.EmploymentType = FullTime
	}
	if in.Status == "" {
		in.Status = JobOpen
	}
}

// Validate normalizes the input and checks it, returning a ValidationError on the first violation.
func (in *JobInput) Validate() error {
	in.Normalize()
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		return e.Validation("salaryMin", "must not exceed salaryMax")
	}
	return nil
}

// Apply copies the input onto job.
func (in *JobInput) Apply(job *Job) {
	job.Title = in.Title
	job.Description = in.Description
	job.Requirements = in.Requirements
	job.Location = in.Location
	job.Country = in.Country
	job.EmploymentType = in.EmploymentType
	job.SalaryMin = in.SalaryMin
	job.SalaryMax = in.SalaryMax
	job.Tags = in.Tags
	job.Skills = in.Skills
	job.Status = in.Status
}

// CompanyInput carries the editable company fields.
type CompanyInput struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Website     string   `json:"website" validate:"omitempty,max=500"`
	Description string   `json:"description" validate:"max=5000"`
	Locations   []string `json:"locations" validate:"max=50,dive,max=200"`
}

// Validate normalizes and checks the company input.
func (in *CompanyInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Website = strings.TrimSpace(in.Website)
	in.Description = strings.TrimSpace(in.Description)
	in.Locations = NormalizeSet(in.Locations)
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Website != "" {
		u, err := url.Parse(in.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return e.Validation("website", "must be an absolute http(s) URL")
		}
	}
	return nil
}

// ProfileInput carries the editable candidate profile fields.
type ProfileInput struct {
	Name               string   `json:"name" validate:"max=200"`
	Location           string   `json:"location" validate:"max=200"`
	Headline           string   `json:"headline" validate:"max=300"`
	Experience         string   `json:"experience" validate:"max=10000"`
	Skills             []string `json:"skills" validate:"max=100,dive,max=100"`
	YearsOfExperience  int      `json:"yearsOfExperience" validate:"gte=0,lte=80"`
	PreferredLocations []string `json:"preferredLocations" validate:"max=50,dive,max=200"`
	PreferredRoles     []string `json:"preferredRoles" validate:"max=50,dive,max=200"`
}

// Validate normalizes and checks the profile input.
func (in *ProfileInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.Headline = strings.TrimSpace(in.Headline)
	in.Experience = strings.TrimSpace(in.Experience)
	in.Skills = NormalizeSet(in.Skills)
	in.PreferredLocations = NormalizeSet(in.PreferredLocations)
	in.PreferredRoles = NormalizeSet(in.PreferredRoles)
	return validateStruct(in)
}

// ApplicationInput is a candidate's application to a job. A nil ResumeID selects the
// candidate's primary resume, if any.
type ApplicationInput struct {
	JobID       uuid.UUID  `json:"jobId"`
	ResumeID    *uuid.UUID `json:"resumeId"`
	CoverLetter string     `json:"coverLetter" validate:"max=10000"`
}

// Validate normalizes and checks the application input.
func (in *ApplicationInput) Validate() error {
	in.CoverLetter = strings.TrimSpace(in.CoverLetter)
	if in.JobID == uuid.Nil {
		return e.Validation("jobId", "is required")
	}
	return validateStruct(in)
}

// NormalizeSet trims entries, drops blanks and removes case-insensitive duplicates,
// keeping the first spelling seen. The result is never nil.
func NormalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return e.Validation(fieldPath(fe), describe(fe))
	}
	return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
}

// fieldPath strips the struct name prefix, e.g. "JobInput.tags[3]" -> "tags[3]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
