package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// Payload is the uniform envelope every JSON endpoint returns.
type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONResponse writes the envelope with the given status code. Encoding
// failures only happen once the status line is gone, so they are just logged.
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
