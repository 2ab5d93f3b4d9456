package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
)

// envelope is the JSON body of every response. Successful responses carry
// "success": true next to their data.
type envelope map[string]any

// internalErrorBody is sent when a response cannot be encoded.
const internalErrorBody = `{"success":false,"error":"Internal server error","code":"INTERNAL_ERROR"}` + "\n"

// jsonResponse writes a JSON response with the given status code. The body
// is encoded before the status is sent, so an encoding failure still turns
// into a 500.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if data != nil {
		if err := json.NewEncoder(&buf).Encode(data); err != nil {
			slog.Error("error encoding response", "status", status, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, internalErrorBody)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

// jsonOK writes a success envelope.
func jsonOK(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["success"] = true
	jsonResponse(w, status, body)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, envelope{"success": false, "error": message, "code": code})
}

// writeError maps err onto a status code. Errors that are not AppErrors are
// logged and reported as internal errors without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		appErr = apperrors.InternalError("Internal server error").WithError(err)
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
	}
	jsonError(w, appErr.StatusCode, appErr.Code, appErr.Message)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return apperrors.ValidationError("Invalid request body").WithError(err)
	}
	return nil
}

// pathID parses the {id} wildcard.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError("Invalid item id")
	}
	return id, nil
}

// queryFloat parses an optional float query parameter. A missing parameter
// yields nil.
func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperrors.AddValidationError(name, "must be a number")
	}
	return &v, nil
}

// queryInt parses an optional integer query parameter, returning def when
// it is missing.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.AddValidationError(name, "must be an integer")
	}
	return v, nil
}
