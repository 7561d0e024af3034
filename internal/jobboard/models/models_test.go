package models

import (
	"errors"
	"math"
	"testing"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationStatusTransitions(t *testing.T) {
	tests := []struct {
		from  ApplicationStatus
		to    ApplicationStatus
		legal bool
	}{
		{StatusApplied, StatusUnderReview, true},
		{StatusApplied, StatusRejected, true},
		{StatusApplied, StatusInterviewed, false},
		{StatusApplied, StatusHired, false},
		{StatusUnderReview, StatusInterviewed, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusUnderReview, StatusHired, false},
		{StatusUnderReview, StatusApplied, false},
		{StatusInterviewed, StatusHired, true},
		{StatusInterviewed, StatusRejected, true},
		{StatusInterviewed, StatusUnderReview, false},
		{StatusRejected, StatusApplied, false},
		{StatusRejected, StatusUnderReview, false},
		{StatusHired, StatusRejected, false},
		{StatusHired, StatusHired, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.legal, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestApplicationStatusTerminal(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusHired.Terminal())
	for _, s := range NonTerminalStatuses() {
		assert.False(t, s.Terminal(), s)
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ApplicationStatus("withdrawn").Valid())
}

func TestJobInputValidate(t *testing.T) {
	tests := []struct {
		name      string
		input     JobInput
		wantField string
	}{
		{
			name:  "valid with defaults",
			input: JobInput{Title: "Backend Engineer", Description: "Build APIs"},
		},
		{
			name:      "blank title",
			input:     JobInput{Title: "   ", Description: "Build APIs"},
			wantField: "title",
		},
		{
			name:      "missing description",
			input:     JobInput{Title: "Backend Engineer"},
			wantField: "description",
		},
		{
			name:      "salary min above max",
			input:     JobInput{Title: "T", Description: "D", SalaryMin: utils.Ptr(200), SalaryMax: utils.Ptr(100)},
			wantField: "salaryMin",
		},
		{
			name:  "salary min equal max",
			input: JobInput{Title: "T", Description: "D", SalaryMin: utils.Ptr(100), SalaryMax: utils.Ptr(100)},
		},
		{
			name:  "only salary max",
			input: JobInput{Title: "T", Description: "D", SalaryMax: utils.Ptr(100)},
		},
		{
			name:      "negative salary",
			input:     JobInput{Title: "T", Description: "D", SalaryMin: utils.Ptr(-1)},
			wantField: "salaryMin",
		},
		{
			name:      "unknown employment type",
			input:     JobInput{Title: "T", Description: "D", EmploymentType: "gig"},
			wantField: "employmentType",
		},
		{
			name:      "unknown status",
			input:     JobInput{Title: "T", Description: "D", Status: "draft"},
			wantField: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, FullTime, tt.input.EmploymentType)
				assert.Equal(t, JobOpen, tt.input.Status)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, e.ErrInvalidInput)
			var verr *e.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestCompanyInputValidate(t *testing.T) {
	in := CompanyInput{Name: "Acme", Website: "https://acme.example"}
	assert.NoError(t, in.Validate())

	in = CompanyInput{Name: " "}
	assert.ErrorIs(t, in.Validate(), e.ErrInvalidInput)

	in = CompanyInput{Name: "Acme", Website: "acme.example"}
	err := in.Validate()
	var verr *e.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "website", verr.Field)
}

func TestNormalizeSet(t *testing.T) {
	got := NormalizeSet([]string{" Go ", "go", "", "SQL", "sql ", "Python"})
	assert.Equal(t, []string{"Go", "SQL", "Python"}, got)
	assert.NotNil(t, NormalizeSet(nil))
}

func TestJobFilterMatch(t *testing.T) {
	job := &Job{
		Title:          "Backend Engineer",
		Location:       "Berlin, Germany (Remote)",
		EmploymentType: FullTime,
		SalaryMin:      utils.Ptr(50000),
		SalaryMax:      utils.Ptr(70000),
		Tags:           []string{"Go", "Cloud"},
		Status:         JobOpen,
	}

	tests := []struct {
		name   string
		filter JobFilter
		want   bool
	}{
		{"empty filter matches", JobFilter{}, true},
		{"location substring", JobFilter{Location: "berlin"}, true},
		{"location mismatch", JobFilter{Location: "Paris"}, false},
		{"country falls back to location", JobFilter{Country: "germany"}, true},
		{"country mismatch", JobFilter{Country: "France"}, false},
		{"employment type", JobFilter{EmploymentType: FullTime}, true},
		{"employment type mismatch", JobFilter{EmploymentType: Contract}, false},
		{"remote only", JobFilter{RemoteOnly: true}, true},
		{"salary min within range", JobFilter{SalaryMin: utils.Ptr(60000)}, true},
		{"salary min above range", JobFilter{SalaryMin: utils.Ptr(80000)}, false},
		{"salary max within range", JobFilter{SalaryMax: utils.Ptr(55000)}, true},
		{"salary max below range", JobFilter{SalaryMax: utils.Ptr(40000)}, false},
		{"tag intersection", JobFilter{Tags: []string{"rust", "cloud"}}, true},
		{"tag disjoint", JobFilter{Tags: []string{"rust"}}, false},
		{"combined AND", JobFilter{Location: "berlin", Tags: []string{"go"}, RemoteOnly: true}, true},
		{"combined AND one fails", JobFilter{Location: "berlin", Tags: []string{"java"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(job))
		})
	}
}

func TestJobFilterCountryUsesExplicitField(t *testing.T) {
	job := &Job{Location: "Remote", Country: "Germany"}
	assert.True(t, JobFilter{Country: "germany"}.Match(job))
	assert.False(t, JobFilter{Country: "Spain"}.Match(job))
}

func TestJobFilterSalaryWithoutJobSalary(t *testing.T) {
	job := &Job{}
	assert.False(t, JobFilter{SalaryMin: utils.Ptr(1)}.Match(job))
	assert.True(t, JobFilter{}.Match(job))
}

func TestJobFilterWindow(t *testing.T) {
	start, end := JobFilter{}.Window(45)
	assert.Equal(t, 0, start)
	assert.Equal(t, DefaultPageSize, end)

	start, end = JobFilter{Page: 3, Limit: 20}.Window(45)
	assert.Equal(t, 40, start)
	assert.Equal(t, 45, end)

	start, end = JobFilter{Page: 9, Limit: 20}.Window(45)
	assert.Equal(t, 45, start)
	assert.Equal(t, 45, end)

	_, end = JobFilter{Limit: 1000}.Window(500)
	assert.Equal(t, MaxPageSize, end)

	start, end = JobFilter{Page: 922337203685477581}.Window(4)
	assert.Equal(t, 4, start)
	assert.Equal(t, 4, end)

	start, end = JobFilter{Page: math.MaxInt, Limit: MaxPageSize}.Window(0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}

func TestJobVisible(t *testing.T) {
	assert.True(t, (&Job{Status: JobOpen}).Visible())
	assert.False(t, (&Job{Status: JobClosed}).Visible())
	assert.False(t, (&Job{Status: JobOpen, IsHidden: true}).Visible())
}
