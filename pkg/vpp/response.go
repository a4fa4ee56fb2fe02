package vpp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RawResponse is one decoded, not yet validated, service response.
type RawResponse struct {
	// HTTPStatus is the transport status code.
	HTTPStatus int

	// Status is the service status field; nil when the body had none.
	Status *int

	ErrorNumber  int
	ErrorMessage string

	// TotalBatchCount is nil when the response did not carry it.
	TotalBatchCount *int

	BatchToken         string
	SinceModifiedToken string

	// Fields holds every top-level field of the body, including the
	// operation-specific result list.
	Fields map[string]json.RawMessage
}

// DecodeRawResponse parses a response body. An empty body yields a response
// with no fields so that the HTTP status can still be classified.
func DecodeRawResponse(httpStatus int, body []byte) (*RawResponse, error) {
	r := &RawResponse{
		HTTPStatus: httpStatus,
		Fields:     map[string]json.RawMessage{},
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return r, nil
	}

	if err := json.Unmarshal(body, &r.Fields); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}

	var err error
	if r.Status, err = r.optionalInt("status"); err != nil {
		return nil, err
	}
	if r.TotalBatchCount, err = r.optionalInt("totalBatchCount"); err != nil {
		return nil, err
	}
	if n, err := r.optionalInt("errorNumber"); err != nil {
		return nil, err
	} else if n != nil {
		r.ErrorNumber = *n
	}

	r.ErrorMessage = r.String("errorMessage")
	r.BatchToken = r.String("batchToken")
	r.SinceModifiedToken = r.String("sinceModifiedToken")

	return r, nil
}

// String returns a string field, or "" when absent or not a string.
func (r *RawResponse) String(field string) string {
	raw, ok := r.Fields[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Results returns the list stored under key. A missing or null field
// yields nil.
func (r *RawResponse) Results(key string) ([]json.RawMessage, error) {
	raw, ok := r.Fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("field %q is not a list: %w", key, err)
	}
	return list, nil
}

// optionalInt reads a numeric field. The service occasionally encodes
// numbers as strings, so both forms are accepted.
func (r *RawResponse) optionalInt(field string) (*int, error) {
	raw, ok := r.Fields[field]
	if !ok || isNull(raw) {
		return nil, nil
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return &n, nil
		}
	}

	return nil, fmt.Errorf("field %q is not an integer: %s", field, raw)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// IsEmptyEntry reports whether a result entry carries no data: a JSON null,
// a blank value or an empty object.
func IsEmptyEntry(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] != '{' {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return false
	}
	return len(obj) == 0
}
