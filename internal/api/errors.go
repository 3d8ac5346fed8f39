package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-dpt/internal/bridges/knx"
	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"

	// ErrCodeValidation marks a value the codec or binding rules rejected.
	ErrCodeValidation = "validation_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // client may have gone away
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeResolveError maps a failed identifier lookup on /dpts/{id}: an
// unknown type is 404, a malformed identifier 400.
func writeResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, dpt.ErrUnknownType) {
		writeNotFound(w, err.Error())
		return
	}
	writeBadRequest(w, err.Error())
}

// writeCodecError maps an encode or decode failure. A descriptor without a
// codec is a registry fault, so 500; anything else is the caller's value.
func writeCodecError(w http.ResponseWriter, err error) {
	if errors.Is(err, dpt.ErrUnboundType) {
		writeInternalError(w, err.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
}

// writeBridgeError maps a group write or read failure.
func writeBridgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, knx.ErrNotBound):
		writeNotFound(w, err.Error())
	case errors.Is(err, dpt.ErrUnknownType), errors.Is(err, dpt.ErrMalformedIdentifier):
		writeBadRequest(w, err.Error())
	case errors.Is(err, knx.ErrEncodingFailed):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, knx.ErrStopped), errors.Is(err, knx.ErrTelegramFailed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
