package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code.
// It marshals first, so an encoding failure still yields a clean 500.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondText writes a plain text response
func RespondText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text))
}

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error  string                 `json:"error"`
	Status int                    `json:"status"`
	Title  string                 `json:"title"`
	Extra  map[string]interface{} `json:"-"`
}

// MarshalJSON puts Extra fields at the top level next to error/status/title
func (e ErrorBody) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"error":  e.Error,
		"status": e.Status,
		"title":  e.Title,
	}
	for k, v := range e.Extra {
		if _, reserved := m[k]; reserved {
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

// RespondError writes {"error": detail, ...} with the given status
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondErrorWithExtras(w, status, detail, nil)
}

// RespondErrorWithExtras writes an error body with additional fields
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]interface{}) {
	body := ErrorBody{
		Error:  detail,
		Status: status,
		Title:  http.StatusText(status),
		Extra:  extras,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		// Fallback to plain text if JSON encoding fails
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
