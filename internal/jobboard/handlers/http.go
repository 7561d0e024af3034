// Package handlers exposes the marketplace over HTTP through a grpc-gateway ServeMux and
// runs the gRPC health service next to it.
package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/matching"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// MarketplaceController defines the business logic interface the HTTP routes invoke.
type MarketplaceController interface {
	Me(p *models.Principal) (*models.Principal, error)

	ListOpenVisibleJobs(ctx context.Context, p *models.Principal, filter models.JobFilter) (*controller.JobPage, error)
	GetJob(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.JobWithCount, error)
	SimilarJobs(ctx context.Context, p *models.Principal, jobID uuid.UUID, limit int) ([]matching.Recommendation, error)
	RecommendJobs(ctx context.Context, p *models.Principal, limit int) ([]matching.Recommendation, error)

	CreateApplication(ctx context.Context, p *models.Principal, in models.ApplicationInput) (*models.ApplicationResult, error)
	ListMyApplications(ctx context.Context, p *models.Principal) ([]models.Application, error)
	GetApplication(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Application, error)
	WithdrawApplication(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.ApplicationResult, error)
	DownloadApplicationResume(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.ResumeFile, error)

	GetProfile(ctx context.Context, p *models.Principal) (*models.CandidateProfile, error)
	UpdateProfile(ctx context.Context, p *models.Principal, in models.ProfileInput) (*models.CandidateProfile, error)

	SaveJob(ctx context.Context, p *models.Principal, jobID uuid.UUID) (*models.SavedJob, error)
	UnsaveJob(ctx context.Context, p *models.Principal, jobID uuid.UUID) error
	ListSavedJobs(ctx context.Context, p *models.Principal) ([]models.SavedJob, error)

	UploadResume(ctx context.Context, p *models.Principal, up models.ResumeUpload) (*models.Resume, error)
	ListMyResumes(ctx context.Context, p *models.Principal) ([]models.Resume, error)
	DeleteResume(ctx context.Context, p *models.Principal, id uuid.UUID) ([]models.Resume, error)
	SetPrimaryResume(ctx context.Context, p *models.Principal, id uuid.UUID) ([]models.Resume, error)
	DownloadResume(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.ResumeFile, error)

	EmployerSummary(ctx context.Context, p *models.Principal) (*controller.EmployerSummary, error)
	ListMyJobs(ctx context.Context, p *models.Principal) ([]models.JobWithCount, error)
	CreateJob(ctx context.Context, p *models.Principal, in models.JobInput) (*models.JobWithCount, error)
	UpdateJob(ctx context.Context, p *models.Principal, id uuid.UUID, in models.JobInput) (*models.JobWithCount, error)
	DeleteJob(ctx context.Context, p *models.Principal, id uuid.UUID) error
	ListJobApplications(ctx context.Context, p *models.Principal, jobID uuid.UUID) ([]models.Application, error)
	UpdateApplicationStatus(ctx context.Context, p *models.Principal, id uuid.UUID,
		next models.ApplicationStatus) (*models.ApplicationResult, error)
	GetMyCompany(ctx context.Context, p *models.Principal) (*models.Company, error)
	UpdateCompany(ctx context.Context, p *models.Principal, in models.CompanyInput) (*models.Company, error)

	AdminSummary(ctx context.Context, p *models.Principal) (*controller.AdminSummary, error)
	BanUser(ctx context.Context, p *models.Principal, userID string) (*models.Account, error)
	ListAllJobs(ctx context.Context, p *models.Principal, filter models.JobFilter) (*controller.JobPage, error)
	HideJob(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Job, error)
	UnhideJob(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Job, error)
}

// HealthChecker reports serving status; *health.Server satisfies it.
type HealthChecker interface {
	Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error)
}

// HTTPHandler serves the JSON API.
type HTTPHandler struct {
	svc          MarketplaceController
	health       HealthChecker
	logger       *zap.Logger
	mux          *runtime.ServeMux
	marshaler    runtime.Marshaler
	errMarshaler runtime.Marshaler
	maxUpload    int64
}

// NewHTTPHandler registers every route and returns the instrumented, authenticated handler.
func NewHTTPHandler(svc MarketplaceController, resolver *auth.Resolver, health HealthChecker,
	maxUpload int64, logger *zap.Logger) (http.Handler, error) {
	if maxUpload <= 0 {
		maxUpload = controller.DefaultMaxResumeBytes
	}
	h := &HTTPHandler{
		svc:          svc,
		health:       health,
		logger:       logger.Named("http_handler"),
		mux:          runtime.NewServeMux(),
		marshaler:    &runtime.JSONBuiltin{},
		errMarshaler: &runtime.JSONPb{},
		maxUpload:    maxUpload,
	}
	if err := h.registerRoutes(); err != nil {
		return nil, err
	}

	var handler http.Handler = auth.HTTPMiddleware(h.mux, resolver, h.writeError)
	handler = metrics.HTTPMetricsMiddleware(handler)
	return otelhttp.NewHandler(handler, "jobboard-http"), nil
}

// endpoint handles one route and returns the status and body to render.
type endpoint func(r *http.Request, p *models.Principal, params map[string]string) (int, interface{}, error)

// fileEndpoint handles a download route.
type fileEndpoint func(r *http.Request, p *models.Principal, params map[string]string) (*models.ResumeFile, error)

func (h *HTTPHandler) handle(method, pattern string, fn endpoint) error {
	return h.mux.HandlePath(method, pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		code, body, err := fn(r, auth.PrincipalFromContext(r.Context()), params)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, code, body)
	})
}

func (h *HTTPHandler) handleFile(method, pattern string, fn fileEndpoint) error {
	return h.mux.HandlePath(method, pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		file, err := fn(r, auth.PrincipalFromContext(r.Context()), params)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
		if name := file.Name; name != "" {
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(file.Data); err != nil {
			h.logger.Debug("Failed to write file", zap.Error(err))
		}
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	if code == http.StatusNoContent || body == nil {
		w.WriteHeader(code)
		return
	}
	buf, err := h.marshaler.Marshal(body)
	if err != nil {
		h.logger.Error("Failed to marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", h.marshaler.ContentType(body))
	w.WriteHeader(code)
	if _, err := w.Write(buf); err != nil {
		h.logger.Debug("Failed to write response", zap.Error(err))
	}
}

// decode reads a JSON request body into v.
func (h *HTTPHandler) decode(r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	if err := h.marshaler.NewDecoder(body).Decode(v); err != nil {
		if err == io.EOF {
			return e.Validation("body", "is required")
		}
		return e.Validation("body", "must be valid JSON")
	}
	return nil
}

const maxJSONBody = 1 << 20

func (h *HTTPHandler) serveHealth(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := h.health.Check(r.Context(), &healthpb.HealthCheckRequest{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	buf, err := protojson.Marshal(resp)
	if err != nil {
		h.logger.Error("Failed to marshal health status", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	code := http.StatusOK
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf)
}

func (h *HTTPHandler) serveMetrics(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	promhttp.Handler().ServeHTTP(w, r)
}

func pathUUID(params map[string]string, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		return uuid.Nil, e.Validation(name, "must be a UUID")
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, e.Validation(name, "must be an integer")
	}
	return n, nil
}

func queryOptInt(r *http.Request, name string) (*int, error) {
	if strings.TrimSpace(r.URL.Query().Get(name)) == "" {
		return nil, nil
	}
	n, err := queryInt(r, name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseJobFilter reads listing predicates from the query string. Tags may be repeated
// or comma separated.
func parseJobFilter(r *http.Request) (models.JobFilter, error) {
	q := r.URL.Query()
	f := models.JobFilter{
		Location:       strings.TrimSpace(q.Get("location")),
		Country:        strings.TrimSpace(q.Get("country")),
		EmploymentType: models.EmploymentType(strings.TrimSpace(q.Get("employmentType"))),
	}
	for _, raw := range q["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	// remote is accepted as a shorthand for remoteOnly.
	for _, name := range []string{"remoteOnly", "remote"} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		remote, err := strconv.ParseBool(raw)
		if err != nil {
			return f, e.Validation(name, "must be a boolean")
		}
		f.RemoteOnly = remote
		break
	}

	var err error
	if f.SalaryMin, err = queryOptInt(r, "salaryMin"); err != nil {
		return f, err
	}
	if f.SalaryMax, err = queryOptInt(r, "salaryMax"); err != nil {
		return f, err
	}
	if f.Page, err = queryInt(r, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	return f, nil
}
