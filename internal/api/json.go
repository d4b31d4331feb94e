package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
}

// errResponse is the body of every non-2xx response.
type errResponse struct {
	Error string `json:"error" example:"Works w1 does not exist" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
