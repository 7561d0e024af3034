// Package authz is the authorization guard. Authorize is a pure decision function over
// a principal, an operation and the ownership/visibility attributes of the target.
package authz

import (
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

// Operation identifies a guarded core operation.
type Operation string

const (
	OpReadIdentity Operation = "read_identity"

	OpListJobs          Operation = "list_jobs"
	OpViewJob           Operation = "view_job"
	OpCreateJob         Operation = "create_job"
	OpUpdateJob         Operation = "update_job"
	OpDeleteJob         Operation = "delete_job"
	OpListMyJobs        Operation = "list_my_jobs"
	OpHideJob           Operation = "hide_job"
	OpListAllJobs       Operation = "list_all_jobs"
	OpViewCompany       Operation = "view_company"
	OpUpdateCompany     Operation = "update_company"
	OpEmployerSummary   Operation = "employer_summary"
	OpViewProfile       Operation = "view_profile"
	OpUpdateProfile     Operation = "update_profile"
	OpRecommend         Operation = "recommend_jobs"
	OpAdminSummary      Operation = "admin_summary"
	OpBanUser           Operation = "ban_user"
	OpSaveJob           Operation = "save_job"
	OpUnsaveJob         Operation = "unsave_job"
	OpListSavedJobs     Operation = "list_saved_jobs"
	OpUploadResume      Operation = "upload_resume"
	OpListResumes       Operation = "list_resumes"
	OpViewResume        Operation = "view_resume"
	OpDeleteResume      Operation = "delete_resume"
	OpSetPrimaryResume  Operation = "set_primary_resume"
	OpCreateApplication Operation = "create_application"
	OpViewApplication   Operation = "view_application"
	OpListMyApps        Operation = "list_my_applications"
	OpListJobApps       Operation = "list_job_applications"
	OpUpdateAppStatus   Operation = "update_application_status"
	OpWithdrawApp       Operation = "withdraw_application"
)

// Resource carries the attributes of the target that rules depend on.
type Resource struct {
	// OwnerID is the owning principal: the company owner for jobs and companies,
	// the candidate for resumes, profiles and applications.
	OwnerID string
	// EmployerID is the owner of the job an application targets.
	EmployerID string
	// Visible is the job-seeker visibility of the job involved.
	Visible bool
}

type ownership int

const (
	ownNone ownership = iota
	// ownOwner requires Resource.OwnerID == principal.ID.
	ownOwner
	// ownEmployer requires Resource.EmployerID == principal.ID.
	ownEmployer
	// ownParty admits the candidate owner, the owning employer and admins.
	ownParty
)

type rule struct {
	roles         []models.Role
	public        bool
	allowInactive bool
	ownership     ownership
	// needsVisible denies non-privileged callers when the job is not visible.
	needsVisible bool
	// conceal answers ownership failures with NotFound instead of Forbidden.
	conceal bool
}

var (
	anyRole  = []models.Role{models.RoleJobSeeker, models.RoleEmployer, models.RoleAdmin}
	seeker   = []models.Role{models.RoleJobSeeker}
	employer = []models.Role{models.RoleEmployer}
	admin    = []models.Role{models.RoleAdmin}
)

var rules = map[Operation]rule{
	OpReadIdentity: {roles: anyRole, allowInactive: true},

	OpListJobs:        {public: true},
	OpViewJob:         {public: true, needsVisible: true},
	OpCreateJob:       {roles: employer},
	OpUpdateJob:       {roles: employer, ownership: ownOwner},
	OpDeleteJob:       {roles: employer, ownership: ownOwner},
	OpListMyJobs:      {roles: employer},
	OpHideJob:         {roles: admin},
	OpListAllJobs:     {roles: admin},
	OpViewCompany:     {roles: employer, ownership: ownOwner},
	OpUpdateCompany:   {roles: employer, ownership: ownOwner},
	OpEmployerSummary: {roles: employer},
	OpAdminSummary:    {roles: admin},
	OpBanUser:         {roles: admin},

	OpViewProfile:   {roles: seeker, ownership: ownOwner},
	OpUpdateProfile: {roles: seeker, ownership: ownOwner},
	OpRecommend:     {roles: seeker},
	OpSaveJob:       {roles: seeker, needsVisible: true},
	OpUnsaveJob:     {roles: seeker},
	OpListSavedJobs: {roles: seeker},

	OpUploadResume:     {roles: seeker},
	OpListResumes:      {roles: seeker},
	OpViewResume:       {roles: seeker, ownership: ownOwner, conceal: true},
	OpDeleteResume:     {roles: seeker, ownership: ownOwner, conceal: true},
	OpSetPrimaryResume: {roles: seeker, ownership: ownOwner, conceal: true},

	OpCreateApplication: {roles: seeker, needsVisible: true},
	OpViewApplication:   {roles: anyRole, ownership: ownParty, conceal: true},
	OpListMyApps:        {roles: seeker},
	OpListJobApps:       {roles: employer, ownership: ownOwner, conceal: true},
	OpUpdateAppStatus:   {roles: employer, ownership: ownEmployer},
	OpWithdrawApp:       {roles: seeker, ownership: ownOwner, conceal: true},
}

// Decision is the outcome of Authorize. Reason is for logs only and is never
// returned to the caller.
type Decision struct {
	Allowed bool
	Reason  string
	err     error
}

// Err returns nil when allowed, otherwise the taxonomy error to surface.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.err
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(err error, reason string) Decision {
	return Decision{Reason: reason, err: err}
}

// Authorize decides whether principal may perform op on res. A nil principal is an
// anonymous caller. The decision is total and side-effect free.
func Authorize(p *models.Principal, op Operation, res Resource) Decision {
	r, ok := rules[op]
	if !ok {
		return deny(e.ErrForbidden, "unknown operation")
	}

	if p == nil {
		if !r.public {
			return deny(e.ErrUnauthenticated, "anonymous caller")
		}
		if r.needsVisible && !res.Visible {
			return deny(e.ErrNotFound, "job not visible")
		}
		return allow()
	}

	if !p.Active && !r.allowInactive {
		return deny(e.ErrForbidden, "account inactive")
	}

	if r.public {
		if r.needsVisible && !res.Visible && !seesHidden(p, res) {
			return deny(e.ErrNotFound, "job not visible")
		}
		return allow()
	}

	if !hasRole(r.roles, p.Role) {
		return deny(e.ErrForbidden, "role "+string(p.Role)+" not permitted")
	}

	ownErr := e.ErrForbidden
	if r.conceal {
		ownErr = e.ErrNotFound
	}
	switch r.ownership {
	case ownOwner:
		if res.OwnerID != p.ID {
			return deny(ownErr, "not the owner")
		}
	case ownEmployer:
		if res.EmployerID != p.ID {
			return deny(ownErr, "not the owning employer")
		}
	case ownParty:
		if !isParty(p, res) {
			return deny(ownErr, "not a party to the application")
		}
	}

	if r.needsVisible && !res.Visible {
		return deny(e.ErrNotFound, "job not visible")
	}
	return allow()
}

// Precheck applies the caller-level part of the rule for op: authentication, account
// status and role. It lets callers reject a request before loading the target.
func Precheck(p *models.Principal, op Operation) Decision {
	r, ok := rules[op]
	if !ok {
		return deny(e.ErrForbidden, "unknown operation")
	}
	if p == nil {
		if r.public {
			return allow()
		}
		return deny(e.ErrUnauthenticated, "anonymous caller")
	}
	if !p.Active && !r.allowInactive {
		return deny(e.ErrForbidden, "account inactive")
	}
	if !r.public && !hasRole(r.roles, p.Role) {
		return deny(e.ErrForbidden, "role "+string(p.Role)+" not permitted")
	}
	return allow()
}

// seesHidden reports whether p may see a job that is closed or hidden.
func seesHidden(p *models.Principal, res Resource) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleEmployer:
		return res.OwnerID == p.ID
	}
	return false
}

func isParty(p *models.Principal, res Resource) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleJobSeeker:
		return res.OwnerID == p.ID
	case models.RoleEmployer:
		return res.EmployerID == p.ID
	}
	return false
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
