// Package matching scores open jobs against a candidate profile.
package matching

import (
	"sort"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/models"
)

const (
	SkillWeight    = 2
	LocationWeight = 1
)

// Recommendation is a scored job.
type Recommendation struct {
	Job   models.Job `json:"job"`
	Score int        `json:"score"`
}

// Recommend returns the jobs with a positive score, best first. Ties are broken by
// newest first and then by ID so the order is total. The result is never nil.
func Recommend(profile *models.CandidateProfile, jobs []models.Job) []Recommendation {
	out := make([]Recommendation, 0)
	if profile == nil || (!hasAny(profile.Skills) && !hasAny(profile.PreferredLocations)) {
		return out
	}

	for _, job := range jobs {
		if s := Score(profile, &job); s > 0 {
			out = append(out, Recommendation{Job: job, Score: s})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Job.CreatedAt.Equal(b.Job.CreatedAt) {
			return a.Job.CreatedAt.After(b.Job.CreatedAt)
		}
		return a.Job.ID.String() < b.Job.ID.String()
	})
	return out
}

// Score computes the match score of one job.
func Score(profile *models.CandidateProfile, job *models.Job) int {
	score := 0
	if skillMatch(profile.Skills, job.Skills) {
		score += SkillWeight
	}
	if locationMatch(profile.PreferredLocations, job.Location) || isRemote(job) {
		score += LocationWeight
	}
	return score
}

// ProfileForJob derives a synthetic profile from a job, used to find similar postings.
func ProfileForJob(job *models.Job) *models.CandidateProfile {
	p := models.EmptyProfile("")
	p.Skills = append(p.Skills, job.Skills...)
	if loc := strings.TrimSpace(job.Location); loc != "" {
		p.PreferredLocations = append(p.PreferredLocations, loc)
	}
	return p
}

// skillMatch reports whether any non-blank candidate skill is a substring of any job skill.
func skillMatch(candidate, job []string) bool {
	for _, c := range candidate {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		for _, j := range job {
			if strings.Contains(strings.ToLower(j), c) {
				return true
			}
		}
	}
	return false
}

func locationMatch(preferred []string, location string) bool {
	location = strings.ToLower(location)
	for _, p := range preferred {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(location, p) {
			return true
		}
	}
	return false
}

// isRemote is a substring heuristic over the title and location text.
func isRemote(job *models.Job) bool {
	return strings.Contains(strings.ToLower(job.Title), "remote") ||
		strings.Contains(strings.ToLower(job.Location), "remote")
}

func hasAny(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
