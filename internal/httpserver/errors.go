package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ronappleton/flowdesk/internal/pipeline"
	"github.com/ronappleton/flowdesk/internal/workflow"
	"go.uber.org/zap"
)

var (
	errForbidden  = errors.New("forbidden")
	errBadRequest = errors.New("bad request")
)

// HTTPStatus maps service errors onto response codes.
func HTTPStatus(err error) int {
	var (
		ve *workflow.ValidationError
		pe *pipeline.ValidationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, workflow.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve), errors.As(err, &pe),
		errors.Is(err, errBadRequest),
		errors.Is(err, pipeline.ErrInvalidPipeline),
		errors.Is(err, pipeline.ErrInvalidTrigger),
		errors.Is(err, pipeline.ErrInvalidApproval),
		errors.Is(err, pipeline.ErrUnknownStepType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error  string                `json:"error"`
	Fields []workflow.FieldError `json:"fields,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	body := errorBody{Error: err.Error()}

	var (
		ve *workflow.ValidationError
		pe *pipeline.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		body.Fields = ve.Errors
	case errors.As(err, &pe):
		for _, issue := range pe.Issues {
			body.Fields = append(body.Fields, workflow.FieldError{Field: "pipeline" + issue.Path, Message: issue.Message})
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
