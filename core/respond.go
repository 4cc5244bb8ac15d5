package core

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the common JSON envelope. Every response carries a boolean
// status; failures additionally carry a message.
type apiResponse map[string]interface{}

// writeJSON writes a JSON body with the given HTTP status. Attribution is
// added by the envelope middleware, not here.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The encoder writes directly to the buffered envelope writer, so a
	// failure here can only come from the underlying connection.
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a standard failure envelope: {status:false, message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{
		"status":  false,
		"message": message,
	})
}
