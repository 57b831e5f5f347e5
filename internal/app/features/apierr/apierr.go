// internal/app/features/apierr/apierr.go
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Code is the machine-readable error code carried in every API error body.
type Code string

const (
	CodeInvalidArgument  Code = "invalid-argument"
	CodeUnauthorized     Code = "unauthorized"
	CodePermissionDenied Code = "permission-denied"
	CodeNotFound         Code = "not-found"
	CodeConflict         Code = "conflict"
	CodeInternal         Code = "internal"
)

func statusFor(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type body struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Write sends a JSON error body with the status implied by the code.
func Write(w http.ResponseWriter, code Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	_ = json.NewEncoder(w).Encode(body{Code: code, Message: message})
}

// Internal logs the underlying error and sends a generic 500 body. The
// error detail stays in the log, not the response.
func Internal(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	Write(w, CodeInternal, msg)
}

// NotFoundOrInternal distinguishes a missing document from a real failure.
func NotFoundOrInternal(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		Write(w, CodeNotFound, msg+" not found")
		return
	}
	Internal(w, log, "failed to load "+msg, err)
}
