// internal/app/system/httpjson/httpjson.go
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) {
	Write(w, http.StatusOK, v)
}

// Decode reads a JSON request body into v. Unknown fields are rejected.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("", "invalid JSON body: "+err.Error())
	}
	return nil
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsForbidden(err):
		return http.StatusForbidden
	case apperr.IsConflict(err):
		return http.StatusConflict
	case apperr.IsExternal(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as JSON. Conflict and external errors report only their
// own message; the wrapped cause is logged. Errors outside the application
// taxonomy are logged and reported with a generic message.
func Error(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}

	var (
		ve *apperr.ValidationError
		ce *apperr.ConflictError
		xe *apperr.ExternalServiceError
	)
	switch {
	case errors.As(err, &ve):
		body = ErrorBody{Error: ve.Message, Field: ve.Field}
	case errors.As(err, &ce):
		log.Warn(op, zap.Error(err))
		body = ErrorBody{Error: ce.Message}
	case errors.As(err, &xe):
		log.Warn(op, zap.String("service", xe.Service), zap.Error(err))
		body = ErrorBody{Error: xe.Service + " is unavailable, please try again later"}
	case status == http.StatusInternalServerError:
		log.Error(op, zap.Error(err))
		body = ErrorBody{Error: "internal error"}
	}

	Write(w, status, body)
}

// PathID parses the chi URL parameter name as an ObjectID. A malformed id
// cannot name an existing document, so it is reported as NotFoundError.
func PathID(r *http.Request, name, kind string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(kind, raw)
	}
	return id, nil
}
