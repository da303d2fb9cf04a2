package middleware

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {success:false,message} envelope
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, map[string]any{
		"success": false,
		"message": message,
	})
}

// NoCache prevents responses carrying tokens or user data from being cached
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
