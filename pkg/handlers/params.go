package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// maxJSONBody bounds decoded request bodies.
const maxJSONBody = 1 << 20

// ParseID extracts and validates the record ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: id
func ParseID(w http.ResponseWriter, r *http.Request, errs *ErrorWriter) (uuid.UUID, bool) {
	return parseUUID(w, r, "id", "invalid_id", "Invalid ID format", errs)
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, errs *ErrorWriter) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(pathParam))
	if err != nil {
		errs.BadRequest(w, errorCode, errorMessage)
		return uuid.Nil, false
	}
	return id, true
}

// QueryUUID reads an optional UUID query parameter. An absent or empty
// parameter yields nil.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid query parameter", apperrors.FieldError{
			Field: name, Error: "must be a UUID",
		})
	}
	return &id, nil
}

// QueryString reads an optional query parameter, nil when empty.
func QueryString(r *http.Request, name string) *string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	return &raw
}

// QueryInt reads an optional integer query parameter, 0 when absent.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("Invalid query parameter", apperrors.FieldError{
			Field: name, Error: "must be an integer",
		})
	}
	return n, nil
}

// DecodeJSON reads the request body into dst and validates it. An empty body
// decodes to the zero value so that optional bodies need no special casing.
func DecodeJSON(r *http.Request, dst any, v *validation.Validator) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewValidationError(fmt.Sprintf("Invalid request body: %v", err))
	}
	if v == nil {
		return nil
	}
	return v.Struct(dst)
}
