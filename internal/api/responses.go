package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Error codes carried in ErrorResponse.Code.
const (
	ErrBadRequest        = "bad_request"
	ErrInvalidBody       = "invalid_body"
	ErrMissingAudio      = "missing_audio"
	ErrUnsupportedAudio  = "unsupported_audio"
	ErrRunInProgress     = "run_in_progress"
	ErrCredentialMissing = "credential_missing"
	ErrTranscription     = "transcription_failure"
	ErrNoRecord          = "no_record"
	ErrDemoUnavailable   = "demo_unavailable"
	ErrUnauthorized      = "unauthorized"
	ErrInternal          = "internal"
	ErrStreaming         = "streaming_not_supported"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteErrorWithCode writes a JSON error response with a machine-readable code.
func WriteErrorWithCode(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// WriteErrorDetail writes a JSON error response with a code and detail.
func WriteErrorDetail(w http.ResponseWriter, status int, code, msg, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Code: code, Detail: detail})
}

// FormBool parses a boolean form or query value. Checkbox values "on" and
// "yes" count as true. Missing or unparseable values return def.
func FormBool(r *http.Request, name string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(r.FormValue(name)))
	switch v {
	case "":
		return def
	case "on", "yes":
		return true
	case "off", "no":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// QueryString returns a trimmed query parameter and whether it was present.
func QueryString(r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	return v, v != ""
}
