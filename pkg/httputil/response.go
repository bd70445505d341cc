// Package httputil provides the response writers shared by the SOAP and admin
// listeners.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"
)

// ErrorResponse is the JSON body written by WriteError.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Content types written by this package.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
)

// WriteJSON encodes data before touching the response, so a value that
// cannot be marshaled becomes a 500 instead of a truncated body. A nil data
// writes the status only.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	if data == nil {
		w.Header().Set("Content-Type", ContentTypeJSON)
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(data)
	if err != nil {
		WriteText(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	WriteBody(w, status, ContentTypeJSON, string(body)+"\n")
}

// WriteError writes {"error": errCode, "message": message}.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteOK writes a 200 OK JSON response.
func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteNotFound writes a 404 JSON error.
func WriteNotFound(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusNotFound, errCode, message)
}

// WriteServiceUnavailable writes a 503 JSON error.
func WriteServiceUnavailable(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusServiceUnavailable, errCode, message)
}

// WriteBody writes body verbatim with the given content type and status.
func WriteBody(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// WriteText writes a plain text response.
func WriteText(w http.ResponseWriter, status int, body string) {
	WriteBody(w, status, ContentTypeText, body)
}
