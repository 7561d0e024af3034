package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EmploymentType represents the contract type of a job posting.
type EmploymentType string

const (
	FullTime   EmploymentType = "full_time"
	PartTime   EmploymentType = "part_time"
	Contract   EmploymentType = "contract"
	Internship EmploymentType = "internship"
	Temporary  EmploymentType = "temporary"
)

// JobStatus is the publication status set by the owning employer.
type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

// Job is a posting owned by a Company.
type Job struct {
	ID             uuid.UUID                   `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID      uuid.UUID                   `gorm:"type:char(36);not null;index" json:"companyId"`
	Company        *Company                    `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Title          string                      `gorm:"size:200;not null" json:"title"`
	Description    string                      `gorm:"size:10000" json:"description"`
	Requirements   string                      `gorm:"size:10000" json:"requirements"`
	Location       string                      `gorm:"size:200" json:"location"`
	Country        string                      `gorm:"size:100" json:"country"`
	EmploymentType EmploymentType              `gorm:"size:20" json:"employmentType"`
	SalaryMin      *int                        `json:"salaryMin,omitempty"`
	SalaryMax      *int                        `json:"salaryMax,omitempty"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`
	Skills         datatypes.JSONSlice[string] `json:"skills"`
	Status         JobStatus                   `gorm:"size:10;index" json:"status"`
	IsHidden       bool                        `gorm:"index" json:"isHidden"`
	// Version guards optimistic updates of the posting.
	Version   int       `json:"version"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Visible reports whether job seekers may see the job.
func (j *Job) Visible() bool {
	return j.Status == JobOpen && !j.IsHidden
}

// OwnerID returns the employer owning the job, or "" when the company is not loaded.
func (j *Job) OwnerID() string {
	if j.Company == nil {
		return ""
	}
	return j.Company.OwnerID
}

// IsRemote reports whether the location text advertises remote work.
func (j *Job) IsRemote() bool {
	return containsFold(j.Location, "remote")
}

// JobWithCount pairs a job with its applicant count computed at read time.
type JobWithCount struct {
	Job
	ApplicantCount int64 `json:"applicantCount"`
}

// JobFilter holds the optional predicates of a job listing. Zero values impose no constraint.
type JobFilter struct {
	Location       string
	Country        string
	EmploymentType EmploymentType
	RemoteOnly     bool
	SalaryMin      *int
	SalaryMax      *int
	Tags           []string
	Page           int
	Limit          int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Match reports whether job satisfies every predicate in f. Visibility is not part of
// the filter; callers decide which jobs are eligible.
func (f JobFilter) Match(job *Job) bool {
	if f.Location != "" && !containsFold(job.Location, f.Location) {
		return false
	}
	if f.Country != "" {
		if job.Country != "" {
			if !strings.EqualFold(strings.TrimSpace(job.Country), strings.TrimSpace(f.Country)) {
				return false
			}
		} else if !containsFold(job.Location, f.Country) {
			return false
		}
	}
	if f.EmploymentType != "" && job.EmploymentType != f.EmploymentType {
		return false
	}
	if f.RemoteOnly && !job.IsRemote() {
		return false
	}
	if f.SalaryMin != nil {
		upper := job.SalaryMax
		if upper == nil {
			upper = job.SalaryMin
		}
		if upper == nil || *upper < *f.SalaryMin {
			return false
		}
	}
	if f.SalaryMax != nil {
		lower := job.SalaryMin
		if lower == nil {
			lower = job.SalaryMax
		}
		if lower == nil || *lower > *f.SalaryMax {
			return false
		}
	}
	if len(f.Tags) > 0 && !intersectsFold(job.Tags, f.Tags) {
		return false
	}
	return true
}

// PageSize returns the effective page size of f.
func (f JobFilter) PageSize() int {
	switch {
	case f.Limit <= 0:
		return DefaultPageSize
	case f.Limit > MaxPageSize:
		return MaxPageSize
	}
	return f.Limit
}

// PageNumber returns the effective one-based page number of f.
func (f JobFilter) PageNumber() int {
	if f.Page <= 0 {
		return 1
	}
	return f.Page
}

// Window returns the [start, end) bounds of the requested page over n items.
func (f JobFilter) Window(n int) (int, int) {
	limit := f.PageSize()
	skip := f.PageNumber() - 1
	if skip > n/limit {
		return n, n
	}
	start := skip * limit
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}

func containsFold(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func intersectsFold(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[strings.ToLower(strings.TrimSpace(w))]; ok {
			return true
		}
	}
	return false
}
