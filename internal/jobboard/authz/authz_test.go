package authz

import (
	"testing"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/stretchr/testify/assert"
)

func principal(id string, role models.Role) *models.Principal {
	return &models.Principal{ID: id, Role: role, Active: true}
}

func TestAuthorize(t *testing.T) {
	seekerA := principal("seeker-a", models.RoleJobSeeker)
	employerA := principal("employer-a", models.RoleEmployer)
	employerB := principal("employer-b", models.RoleEmployer)
	adminP := principal("admin", models.RoleAdmin)
	banned := &models.Principal{ID: "banned", Role: models.RoleJobSeeker, Active: false}

	visible := Resource{OwnerID: "employer-a", Visible: true}
	hidden := Resource{OwnerID: "employer-a", Visible: false}

	tests := []struct {
		name    string
		p       *models.Principal
		op      Operation
		res     Resource
		wantErr error
	}{
		{"anonymous lists jobs", nil, OpListJobs, Resource{}, nil},
		{"anonymous views visible job", nil, OpViewJob, visible, nil},
		{"anonymous views hidden job", nil, OpViewJob, hidden, e.ErrNotFound},
		{"anonymous creates job", nil, OpCreateJob, Resource{}, e.ErrUnauthenticated},
		{"anonymous uploads resume", nil, OpUploadResume, Resource{}, e.ErrUnauthenticated},

		{"seeker views hidden job", seekerA, OpViewJob, hidden, e.ErrNotFound},
		{"owner views hidden job", employerA, OpViewJob, hidden, nil},
		{"other employer views hidden job", employerB, OpViewJob, hidden, e.ErrNotFound},
		{"admin views hidden job", adminP, OpViewJob, hidden, nil},

		{"employer creates job", employerA, OpCreateJob, Resource{}, nil},
		{"seeker creates job", seekerA, OpCreateJob, Resource{}, e.ErrForbidden},
		{"admin creates job", adminP, OpCreateJob, Resource{}, e.ErrForbidden},
		{"owner updates job", employerA, OpUpdateJob, visible, nil},
		{"non owner updates job", employerB, OpUpdateJob, visible, e.ErrForbidden},
		{"admin hides job", adminP, OpHideJob, visible, nil},
		{"employer hides job", employerA, OpHideJob, visible, e.ErrForbidden},

		{"seeker applies to visible job", seekerA, OpCreateApplication, visible, nil},
		{"seeker applies to hidden job", seekerA, OpCreateApplication, hidden, e.ErrNotFound},
		{"employer applies", employerA, OpCreateApplication, visible, e.ErrForbidden},

		{"candidate views own application", seekerA, OpViewApplication,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, nil},
		{"owning employer views application", employerA, OpViewApplication,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, nil},
		{"other employer views application", employerB, OpViewApplication,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, e.ErrNotFound},
		{"other seeker views application", principal("seeker-b", models.RoleJobSeeker), OpViewApplication,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, e.ErrNotFound},
		{"admin views application", adminP, OpViewApplication,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, nil},

		{"owning employer transitions", employerA, OpUpdateAppStatus,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, nil},
		{"other employer transitions", employerB, OpUpdateAppStatus,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, e.ErrForbidden},
		{"admin transitions", adminP, OpUpdateAppStatus,
			Resource{OwnerID: "seeker-a", EmployerID: "employer-a"}, e.ErrForbidden},
		{"candidate withdraws own", seekerA, OpWithdrawApp, Resource{OwnerID: "seeker-a"}, nil},
		{"candidate withdraws other", seekerA, OpWithdrawApp, Resource{OwnerID: "seeker-b"}, e.ErrNotFound},

		{"owner deletes resume", seekerA, OpDeleteResume, Resource{OwnerID: "seeker-a"}, nil},
		{"other deletes resume", seekerA, OpDeleteResume, Resource{OwnerID: "seeker-b"}, e.ErrNotFound},
		{"employer lists resumes", employerA, OpListResumes, Resource{}, e.ErrForbidden},

		{"banned reads identity", banned, OpReadIdentity, Resource{}, nil},
		{"banned lists jobs", banned, OpListJobs, Resource{}, e.ErrForbidden},
		{"banned uploads resume", banned, OpUploadResume, Resource{}, e.ErrForbidden},
		{"banned applies", banned, OpCreateApplication, visible, e.ErrForbidden},

		{"admin bans", adminP, OpBanUser, Resource{}, nil},
		{"employer bans", employerA, OpBanUser, Resource{}, e.ErrForbidden},
		{"unknown operation", adminP, Operation("launch"), Resource{}, e.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.p, tt.op, tt.res)
			if tt.wantErr == nil {
				assert.True(t, d.Allowed, d.Reason)
				assert.NoError(t, d.Err())
				return
			}
			assert.False(t, d.Allowed)
			assert.ErrorIs(t, d.Err(), tt.wantErr)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestAuthorizeEveryOperationHasRule(t *testing.T) {
	ops := []Operation{
		OpReadIdentity, OpListJobs, OpViewJob, OpCreateJob, OpUpdateJob, OpDeleteJob,
		OpListMyJobs, OpHideJob, OpListAllJobs, OpViewCompany, OpUpdateCompany,
		OpEmployerSummary, OpViewProfile, OpUpdateProfile, OpRecommend, OpAdminSummary,
		OpBanUser, OpSaveJob, OpUnsaveJob, OpListSavedJobs, OpUploadResume, OpListResumes,
		OpViewResume, OpDeleteResume, OpSetPrimaryResume, OpCreateApplication,
		OpViewApplication, OpListMyApps, OpListJobApps, OpUpdateAppStatus, OpWithdrawApp,
	}
	for _, op := range ops {
		_, ok := rules[op]
		assert.True(t, ok, op)
	}
}

func TestForbiddenMessageIsBare(t *testing.T) {
	d := Authorize(principal("s", models.RoleJobSeeker), OpHideJob, Resource{})
	assert.Equal(t, "forbidden", d.Err().Error())
}

func TestPrecheck(t *testing.T) {
	tests := []struct {
		name    string
		p       *models.Principal
		op      Operation
		wantErr error
	}{
		{"anonymous public", nil, OpViewJob, nil},
		{"anonymous private", nil, OpViewApplication, e.ErrUnauthenticated},
		{"wrong role", principal("e", models.RoleEmployer), OpWithdrawApp, e.ErrForbidden},
		{"banned", &models.Principal{ID: "b", Role: models.RoleEmployer}, OpUpdateJob, e.ErrForbidden},
		{"ownership not checked", principal("e", models.RoleEmployer), OpUpdateJob, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Precheck(tt.p, tt.op)
			if tt.wantErr == nil {
				assert.True(t, d.Allowed)
				return
			}
			assert.ErrorIs(t, d.Err(), tt.wantErr)
		})
	}
}
