package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// WriteStarted writes the response for a run that was accepted and is executing in the background.
func WriteStarted(w http.ResponseWriter, runID, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"task_id": runID,
		"message": message,
	})
}

// PathParam returns the path segment after prefix, or "" when it is empty or nested.
// Example: PathParam("/api/task_status/op_0_10_1", "/api/task_status/") -> "op_0_10_1"
func PathParam(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	param := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	if strings.Contains(param, "/") {
		return ""
	}
	return param
}

// DecodeJSON decodes the request body into v, rejecting unknown shapes with a 400.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
