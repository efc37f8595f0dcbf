package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// InvalidParameterError is the error code sent for rejected requests.
const InvalidParameterError = "InvalidParameterError"

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	ErrorCode  string `json:"errorCode"`
	Error      string `json:"error"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		h.logger.Error(message, "status", code)
	} else {
		h.logger.Info(message, "status", code)
	}
	errorCode := InvalidParameterError
	if code == http.StatusNotFound {
		errorCode = "NotFoundError"
	} else if code >= http.StatusInternalServerError {
		errorCode = "InternalServerError"
	}
	h.writeJSON(w, code, ErrorResponse{StatusCode: code, ErrorCode: errorCode, Error: message})
}
