package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

const resumeFormField = "resume"

type statusRequest struct {
	Status models.ApplicationStatus `json:"status"`
}

type saveJobRequest struct {
	JobID uuid.UUID `json:"jobId"`
}

type applicationsResponse struct {
	Applications []models.Application `json:"applications"`
}

type resumesResponse struct {
	Resumes []models.Resume `json:"resumes"`
}

type jobsResponse struct {
	Jobs []models.JobWithCount `json:"jobs"`
}

type savedResponse struct {
	Saved []models.SavedJob `json:"saved"`
}

func (h *HTTPHandler) registerRoutes() error {
	routes := []struct {
		method  string
		pattern string
		fn      endpoint
	}{
		{http.MethodGet, "/api/auth/me", h.me},

		{http.MethodGet, "/api/jobs", h.listJobs},
		{http.MethodGet, "/api/jobs/{id}", h.getJob},
		{http.MethodGet, "/api/jobs/{id}/recommendations", h.similarJobs},
		{http.MethodGet, "/api/recommendations/jobs", h.recommendJobs},

		{http.MethodGet, "/api/applications", h.listMyApplications},
		{http.MethodPost, "/api/applications", h.createApplication},
		{http.MethodGet, "/api/applications/{id}", h.getApplication},
		{http.MethodDelete, "/api/applications/{id}", h.withdrawApplication},

		{http.MethodGet, "/api/profile", h.getProfile},
		{http.MethodPut, "/api/profile", h.updateProfile},

		{http.MethodGet, "/api/saved", h.listSaved},
		{http.MethodPost, "/api/saved", h.saveJob},
		{http.MethodDelete, "/api/saved/{jobId}", h.unsaveJob},

		{http.MethodGet, "/api/resumes", h.listResumes},
		{http.MethodPost, "/api/resumes", h.uploadResume},
		{http.MethodDelete, "/api/resumes/{id}", h.deleteResume},
		{http.MethodPut, "/api/resumes/{id}/primary", h.setPrimaryResume},

		{http.MethodGet, "/api/employer/summary", h.employerSummary},
		{http.MethodGet, "/api/employer/jobs", h.listMyJobs},
		{http.MethodPost, "/api/employer/jobs", h.createJob},
		{http.MethodPut, "/api/employer/jobs/{id}", h.updateJob},
		{http.MethodDelete, "/api/employer/jobs/{id}", h.deleteJob},
		{http.MethodGet, "/api/employer/jobs/{id}/applications", h.listJobApplications},
		{http.MethodPut, "/api/employer/applications/{id}/status", h.updateStatus},
		{http.MethodGet, "/api/employer/company", h.getCompany},
		{http.MethodPut, "/api/employer/company", h.updateCompany},

		{http.MethodGet, "/api/admin/summary", h.adminSummary},
		{http.MethodPut, "/api/admin/users/{id}/ban", h.banUser},
		{http.MethodGet, "/api/admin/jobs", h.listAllJobs},
		{http.MethodPut, "/api/admin/jobs/{id}/hide", h.hideJob},
		{http.MethodDelete, "/api/admin/jobs/{id}/hide", h.unhideJob},
	}
	for _, rt := range routes {
		if err := h.handle(rt.method, rt.pattern, rt.fn); err != nil {
			return err
		}
	}

	files := []struct {
		pattern string
		fn      fileEndpoint
	}{
		{"/api/applications/{id}/resume", h.downloadApplicationResume},
		{"/api/resumes/{id}/file", h.downloadResume},
	}
	for _, rt := range files {
		if err := h.handleFile(http.MethodGet, rt.pattern, rt.fn); err != nil {
			return err
		}
	}

	if err := h.mux.HandlePath(http.MethodGet, "/healthz", h.serveHealth); err != nil {
		return err
	}
	return h.mux.HandlePath(http.MethodGet, "/metrics", h.serveMetrics)
}

func (h *HTTPHandler) me(_ *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	me, err := h.svc.Me(p)
	return http.StatusOK, me, err
}

// Jobs

func (h *HTTPHandler) listJobs(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	filter, err := parseJobFilter(r)
	if err != nil {
		return 0, nil, err
	}
	page, err := h.svc.ListOpenVisibleJobs(r.Context(), p, filter)
	return http.StatusOK, page, err
}

func (h *HTTPHandler) getJob(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	job, err := h.svc.GetJob(r.Context(), p, id)
	return http.StatusOK, job, err
}

func (h *HTTPHandler) similarJobs(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, nil, err
	}
	recs, err := h.svc.SimilarJobs(r.Context(), p, id, limit)
	return http.StatusOK, recs, err
}

func (h *HTTPHandler) recommendJobs(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, nil, err
	}
	recs, err := h.svc.RecommendJobs(r.Context(), p, limit)
	return http.StatusOK, recs, err
}

// Applications

func (h *HTTPHandler) listMyApplications(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	apps, err := h.svc.ListMyApplications(r.Context(), p)
	return http.StatusOK, applicationsResponse{Applications: apps}, err
}

func (h *HTTPHandler) createApplication(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	var in models.ApplicationInput
	if err := h.decode(r, &in); err != nil {
		return 0, nil, err
	}
	res, err := h.svc.CreateApplication(r.Context(), p, in)
	return http.StatusCreated, res, err
}

func (h *HTTPHandler) getApplication(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	app, err := h.svc.GetApplication(r.Context(), p, id)
	return http.StatusOK, app, err
}

func (h *HTTPHandler) withdrawApplication(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	res, err := h.svc.WithdrawApplication(r.Context(), p, id)
	return http.StatusOK, res, err
}

func (h *HTTPHandler) downloadApplicationResume(r *http.Request, p *models.Principal,
	params map[string]string) (*models.ResumeFile, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.DownloadApplicationResume(r.Context(), p, id)
}

// Profile and saved jobs

func (h *HTTPHandler) getProfile(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	profile, err := h.svc.GetProfile(r.Context(), p)
	return http.StatusOK, profile, err
}

func (h *HTTPHandler) updateProfile(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	var in models.ProfileInput
	if err := h.decode(r, &in); err != nil {
		return 0, nil, err
	}
	profile, err := h.svc.UpdateProfile(r.Context(), p, in)
	return http.StatusOK, profile, err
}

func (h *HTTPHandler) listSaved(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	saved, err := h.svc.ListSavedJobs(r.Context(), p)
	return http.StatusOK, savedResponse{Saved: saved}, err
}

func (h *HTTPHandler) saveJob(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	var req saveJobRequest
	if err := h.decode(r, &req); err != nil {
		return 0, nil, err
	}
	if req.JobID == uuid.Nil {
		return 0, nil, e.Validation("jobId", "is required")
	}
	saved, err := h.svc.SaveJob(r.Context(), p, req.JobID)
	return http.StatusCreated, saved, err
}

func (h *HTTPHandler) unsaveJob(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "jobId")
	if err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, h.svc.UnsaveJob(r.Context(), p, id)
}

// Resumes

func (h *HTTPHandler) listResumes(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	resumes, err := h.svc.ListMyResumes(r.Context(), p)
	return http.StatusOK, resumesResponse{Resumes: resumes}, err
}

// uploadResume reads the multipart field "resume". Oversized bodies are rejected
// before they reach the controller.
func (h *HTTPHandler) uploadResume(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	// Multipart framing needs headroom on top of the file itself.
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxUpload+maxJSONBody)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return 0, nil, e.Validation("file", "exceeds the maximum size")
		}
		return 0, nil, e.Validation("file", "must be a multipart upload")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(resumeFormField)
	if err != nil {
		return 0, nil, e.Validation("file", "is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return 0, nil, e.Validation("file", "could not be read")
	}
	resume, err := h.svc.UploadResume(r.Context(), p, models.ResumeUpload{
		OriginalName: header.Filename,
		ContentType:  strings.TrimSpace(header.Header.Get("Content-Type")),
		Data:         data,
	})
	return http.StatusCreated, resume, err
}

func (h *HTTPHandler) deleteResume(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	resumes, err := h.svc.DeleteResume(r.Context(), p, id)
	return http.StatusOK, resumesResponse{Resumes: resumes}, err
}

func (h *HTTPHandler) setPrimaryResume(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	resumes, err := h.svc.SetPrimaryResume(r.Context(), p, id)
	return http.StatusOK, resumesResponse{Resumes: resumes}, err
}

func (h *HTTPHandler) downloadResume(r *http.Request, p *models.Principal, params map[string]string) (*models.ResumeFile, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.DownloadResume(r.Context(), p, id)
}

// Employer

func (h *HTTPHandler) employerSummary(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	summary, err := h.svc.EmployerSummary(r.Context(), p)
	return http.StatusOK, summary, err
}

func (h *HTTPHandler) listMyJobs(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	jobs, err := h.svc.ListMyJobs(r.Context(), p)
	return http.StatusOK, jobsResponse{Jobs: jobs}, err
}

func (h *HTTPHandler) createJob(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	var in models.JobInput
	if err := h.decode(r, &in); err != nil {
		return 0, nil, err
	}
	job, err := h.svc.CreateJob(r.Context(), p, in)
	return http.StatusCreated, job, err
}

func (h *HTTPHandler) updateJob(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	var in models.JobInput
	if err := h.decode(r, &in); err != nil {
		return 0, nil, err
	}
	job, err := h.svc.UpdateJob(r.Context(), p, id, in)
	return http.StatusOK, job, err
}

func (h *HTTPHandler) deleteJob(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, h.svc.DeleteJob(r.Context(), p, id)
}

func (h *HTTPHandler) listJobApplications(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	apps, err := h.svc.ListJobApplications(r.Context(), p, id)
	return http.StatusOK, applicationsResponse{Applications: apps}, err
}

func (h *HTTPHandler) updateStatus(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		return 0, nil, err
	}
	res, err := h.svc.UpdateApplicationStatus(r.Context(), p, id, req.Status)
	return http.StatusOK, res, err
}

func (h *HTTPHandler) getCompany(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	company, err := h.svc.GetMyCompany(r.Context(), p)
	return http.StatusOK, company, err
}

func (h *HTTPHandler) updateCompany(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	var in models.CompanyInput
	if err := h.decode(r, &in); err != nil {
		return 0, nil, err
	}
	company, err := h.svc.UpdateCompany(r.Context(), p, in)
	return http.StatusOK, company, err
}

// Admin

func (h *HTTPHandler) adminSummary(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	summary, err := h.svc.AdminSummary(r.Context(), p)
	return http.StatusOK, summary, err
}

func (h *HTTPHandler) banUser(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	account, err := h.svc.BanUser(r.Context(), p, params["id"])
	return http.StatusOK, account, err
}

func (h *HTTPHandler) listAllJobs(r *http.Request, p *models.Principal, _ map[string]string) (int, interface{}, error) {
	filter, err := parseJobFilter(r)
	if err != nil {
		return 0, nil, err
	}
	page, err := h.svc.ListAllJobs(r.Context(), p, filter)
	return http.StatusOK, page, err
}

func (h *HTTPHandler) hideJob(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	job, err := h.svc.HideJob(r.Context(), p, id)
	return http.StatusOK, job, err
}

func (h *HTTPHandler) unhideJob(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error) {
	id, err := pathUUID(params, "id")
	if err != nil {
		return 0, nil, err
	}
	job, err := h.svc.UnhideJob(r.Context(), p, id)
	return http.StatusOK, job, err
}
