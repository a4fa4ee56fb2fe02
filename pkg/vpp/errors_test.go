package vpp

import (
	"errors"
	"fmt"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestIsSuccess(t *testing.T) {
	tests := []struct {
		name     string
		resp     *RawResponse
		expected bool
	}{
		{
			name:     "status zero with 200",
			resp:     &RawResponse{HTTPStatus: 200, Status: intPtr(0)},
			expected: true,
		},
		{
			name:     "non-zero status",
			resp:     &RawResponse{HTTPStatus: 200, Status: intPtr(-1)},
			expected: false,
		},
		{
			name:     "missing status",
			resp:     &RawResponse{HTTPStatus: 200},
			expected: false,
		},
		{
			name:     "http failure with status zero",
			resp:     &RawResponse{HTTPStatus: 500, Status: intPtr(0)},
			expected: false,
		},
		{
			name:     "nil response",
			resp:     nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSuccess(tt.resp); got != tt.expected {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		resp        *RawResponse
		wantErr     bool
		wantNumber  int
		wantMessage string
	}{
		{
			name: "success",
			resp: &RawResponse{HTTPStatus: 200, Status: intPtr(0)},
		},
		{
			name: "api error carries number and message",
			resp: &RawResponse{
				HTTPStatus:   200,
				Status:       intPtr(-1),
				ErrorNumber:  9625,
				ErrorMessage: "The server has revoked the sToken.",
			},
			wantErr:     true,
			wantNumber:  9625,
			wantMessage: "The server has revoked the sToken.",
		},
		{
			name:        "http error without body",
			resp:        &RawResponse{HTTPStatus: 503},
			wantErr:     true,
			wantMessage: "Service Unavailable",
		},
		{
			name:        "non-zero status without message",
			resp:        &RawResponse{HTTPStatus: 200, Status: intPtr(2)},
			wantErr:     true,
			wantMessage: "status 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(OpGetUsers, 1, tt.resp)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Validate() error = %T, want *APIError", err)
			}
			if apiErr.ErrorNumber != tt.wantNumber {
				t.Errorf("ErrorNumber = %d, want %d", apiErr.ErrorNumber, tt.wantNumber)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.Index != 1 {
				t.Errorf("Index = %d, want 1", apiErr.Index)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"transport", &TransportError{Operation: OpGetUsers, Index: 0, Err: cause}, KindTransport},
		{"api", &APIError{Operation: OpGetUsers, ErrorNumber: 9600}, KindAPI},
		{"protocol", &ProtocolError{Operation: OpGetUsers, Reason: "bad"}, KindProtocol},
		{"wrapped api", fmt.Errorf("fetch users: %w", &APIError{Operation: OpGetUsers}), KindAPI},
		{"plain error", cause, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "api error with batch",
			err:      &APIError{Operation: OpGetLicenses, Index: 2, ErrorNumber: 9600, Message: "Missing sToken"},
			expected: "VPP getLicenses error 9600 (batch 2): Missing sToken",
		},
		{
			name:     "api error without batch",
			err:      &APIError{Operation: OpClientConfig, Index: NoIndex, ErrorNumber: 9625, Message: "revoked"},
			expected: "VPP clientConfig error 9625: revoked",
		},
		{
			name:     "transport error",
			err:      &TransportError{Operation: OpGetUsers, Index: 0, Err: errors.New("timeout")},
			expected: "VPP getUsers transport error (batch 0): timeout",
		},
		{
			name:     "protocol error with cause",
			err:      &ProtocolError{Operation: OpGetUsers, Index: 0, Reason: "missing totalBatchCount", Err: errors.New("x")},
			expected: "VPP getUsers protocol error (batch 0): missing totalBatchCount: x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransportError{Operation: OpGetUsers, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is should match ErrTransport")
	}
	if errors.Is(err, ErrAPI) {
		t.Error("transport error must not match ErrAPI")
	}
}

func TestAPIError_URLMoved(t *testing.T) {
	if !(&APIError{ErrorNumber: ErrorNumberURLMoved}).URLMoved() {
		t.Error("9617 should report URLMoved")
	}
	if (&APIError{ErrorNumber: 9600}).URLMoved() {
		t.Error("9600 should not report URLMoved")
	}
}
