package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/audit"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/logging"
	"github.com/edusupervise/supervision-engine/pkg/middleware"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Fields  []apperrors.FieldError `json:"fields,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return writeError(w, statusCode, ErrorBody{Error: errorCode, Message: message})
}

func writeError(w http.ResponseWriter, statusCode int, body ErrorBody) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorWriter turns service errors into HTTP responses. Forbidden outcomes are
// reported to the security auditor; unexpected errors are logged and hidden.
type ErrorWriter struct {
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// NewErrorWriter creates an ErrorWriter. auditor may be nil.
func NewErrorWriter(auditor *audit.SecurityAuditor, logger *zap.Logger) *ErrorWriter {
	return &ErrorWriter{auditor: auditor, logger: logger}
}

// StatusFor returns the HTTP status and error code for err.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// Write maps err onto its status and writes the error body.
func (e *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	body := ErrorBody{Error: code, Message: err.Error()}

	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		body.Message = verr.Message
		body.Fields = verr.Fields
	}

	switch status {
	case http.StatusForbidden:
		e.auditDenied(r, err)
	case http.StatusInternalServerError:
		e.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("error", logging.SanitizeError(err)))
		body.Message = "Internal server error"
	}

	if err := writeError(w, status, body); err != nil {
		e.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// BadRequest writes a 400 with the given code and message.
func (e *ErrorWriter) BadRequest(w http.ResponseWriter, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		e.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// JSON writes data and logs encoding failures.
func (e *ErrorWriter) JSON(w http.ResponseWriter, statusCode int, data any) {
	if err := WriteJSON(w, statusCode, data); err != nil {
		e.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (e *ErrorWriter) auditDenied(r *http.Request, err error) {
	if e.auditor == nil {
		return
	}
	actor, ok := auth.GetActor(r.Context())
	if !ok {
		return
	}
	e.auditor.LogAuthorizationDenied(actor.ID, string(actor.Role), audit.DenialDetails{
		Method: r.Method,
		Path:   r.URL.Path,
		Reason: err.Error(),
	}, middleware.ClientIP(r))
}
