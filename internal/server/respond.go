package server

import (
	"net/http"

	"github.com/goccy/go-json"
)

type errorResponse struct {
	Error    string `json:"error"`
	Guidance string `json:"guidance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, guidance string) {
	writeJSON(w, status, errorResponse{Error: message, Guidance: guidance})
}
