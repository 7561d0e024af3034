package handlers

import (
	"errors"
	"net/http"
	"strconv"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

const errorDomain = "jobboard"

// mapServiceError maps domain errors to gRPC statuses. Denials and missing entities use
// fixed messages so responses do not reveal why access failed.
func (h *HTTPHandler) mapServiceError(err error) *status.Status {
	var (
		verr     *e.ValidationError
		conflict *e.ConflictError
	)
	switch {
	case errors.Is(err, e.ErrUnauthenticated):
		return status.New(codes.Unauthenticated, e.ErrUnauthenticated.Error())
	case errors.Is(err, e.ErrForbidden):
		return status.New(codes.PermissionDenied, e.ErrForbidden.Error())
	case errors.As(err, &verr):
		return withDetails(status.New(codes.InvalidArgument, verr.Error()), &errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{
				{Field: verr.Field, Description: verr.Reason},
			},
		})
	case errors.Is(err, e.ErrInvalidInput):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrNotFound):
		return status.New(codes.NotFound, e.ErrNotFound.Error())
	case errors.As(err, &conflict):
		return withDetails(status.New(codes.Aborted, conflict.Error()), conflictInfo(conflict))
	case errors.Is(err, e.ErrConflict):
		return status.New(codes.Aborted, e.ErrConflict.Error())
	case errors.Is(err, e.ErrTransient):
		h.logger.Warn("Collaborator unavailable", zap.Error(err))
		return status.New(codes.Unavailable, e.ErrTransient.Error())
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.New(codes.Internal, "internal server error")
	}
}

// conflictInfo exposes the committed state a losing writer should observe.
func conflictInfo(c *e.ConflictError) *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: "CONFLICT", Domain: errorDomain, Metadata: map[string]string{}}
	if app, ok := c.Current.(*models.Application); ok && app != nil {
		info.Metadata["applicationId"] = app.ID.String()
		info.Metadata["status"] = string(app.Status)
		info.Metadata["version"] = strconv.Itoa(app.Version)
	}
	return info
}

func withDetails(st *status.Status, detail protoadapt.MessageV1) *status.Status {
	detailed, err := st.WithDetails(detail)
	if err != nil {
		return st
	}
	return detailed
}

// writeError renders err through the gateway error handler.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	st := h.mapServiceError(err)
	runtime.HTTPError(r.Context(), h.mux, h.errMarshaler, w, r, st.Err())
}
