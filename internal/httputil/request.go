package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"promptgate/internal/config"
)

// Errors returned by ReadJSONBody. Both mean "no usable JSON object"; callers
// decide the status code.
var (
	ErrEmptyBody   = errors.New("request body is empty")
	ErrInvalidJSON = errors.New("request body is not a JSON object")
)

// ReadJSONBody reads the whole body (bounded) and decodes it into dest.
// The raw bytes are returned and the body is replaced so later readers see it
// again. A body of JSON null or a non-object value is rejected.
func ReadJSONBody(w http.ResponseWriter, r *http.Request, dest interface{}) ([]byte, error) {
	if r.Body == nil {
		return nil, ErrEmptyBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return raw, ErrEmptyBody
	}
	if trimmed[0] != '{' {
		return raw, ErrInvalidJSON
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return raw, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return raw, nil
}
