package api

import (
	"encoding/json"
	"net/http"

	"homeservices/internal/workflow"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: APIError{Code: code, Message: message},
	})
}

// WriteWorkflowError maps a workflow error kind onto the HTTP boundary.
// Unknown errors collapse to a bare 500; internals never leak.
func WriteWorkflowError(w http.ResponseWriter, err error) {
	kind := workflow.KindOf(err)
	WriteError(w, httpStatus(kind), string(kind), workflow.MessageOf(err))
}

func httpStatus(kind workflow.Kind) int {
	switch kind {
	case workflow.KindValidation, workflow.KindMissingReason:
		return http.StatusBadRequest
	case workflow.KindUnauthenticated:
		return http.StatusUnauthorized
	case workflow.KindForbidden, workflow.KindInvalidActor:
		return http.StatusForbidden
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindInvalidTransition, workflow.KindInvalidState:
		return http.StatusConflict
	case workflow.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case workflow.KindConfiguration, workflow.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
