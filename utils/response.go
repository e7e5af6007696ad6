package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type M map[string]any

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"error": msg})
}

// RespondWithMissing is the 400 for absent required fields.
func RespondWithMissing(w http.ResponseWriter, missing []string) {
	RespondWithJSON(w, http.StatusBadRequest, M{
		"error":   "Missing required fields",
		"missing": missing,
	})
}

// RespondServerError is the 500 shape: a fixed message plus the underlying detail.
func RespondServerError(w http.ResponseWriter, msg string, err error) {
	body := M{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	RespondWithJSON(w, http.StatusInternalServerError, body)
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// DecodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
