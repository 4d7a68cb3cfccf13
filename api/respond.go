package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

// errorResponse 统一错误响应
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const msgNotInitialized = "model not initialized"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}
