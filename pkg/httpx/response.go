package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the uniform JSON body for every response, success or failure.
// Message is human-readable; backend detail never leaks into it.
type Envelope struct {
	Data      any       `json:"data"`
	Message   string    `json:"message,omitempty"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// WriteJSON writes v as the envelope's data with the given status code.
func WriteJSON(w http.ResponseWriter, code int, data any, message string) {
	writeEnvelope(w, code, Envelope{
		Data:    data,
		Message: message,
		Success: code < http.StatusBadRequest,
	})
}

// WriteError writes a failure envelope with no data.
func WriteError(w http.ResponseWriter, code int, message string) {
	writeEnvelope(w, code, Envelope{Message: message, Success: false})
}

func writeEnvelope(w http.ResponseWriter, code int, env Envelope) {
	env.Timestamp = time.Now().UTC()
	env.Status = http.StatusText(code)

	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

// NoCache prevents caching of sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
