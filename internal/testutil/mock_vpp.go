// Package testutil provides testing utilities for the VPP client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Paths served by MockVPP.
const (
	PathServiceConfig = "/VPPServiceConfigSrv"
	PathClientConfig  = "/clientConfigSrv"
	PathGetUsers      = "/getUsersSrv"
	PathGetLicenses   = "/getLicensesSrv"
)

// MockBatch defines the response for one batch of a batched operation.
type MockBatch struct {
	Items              []any
	SinceModifiedToken string
	Delay              time.Duration

	// A non-zero Status turns the batch into an API error response.
	Status       int
	ErrorNumber  int
	ErrorMessage string
}

// MockVPP is a configurable mock VPP service for testing. It serves the
// service configuration, client registration and the batched getUsers and
// getLicenses endpoints.
type MockVPP struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	sToken        string
	batchToken    string
	clientContext string
	batches       map[string][]MockBatch

	requests       map[string]int
	lastParams     map[string]map[string]any
	serviceConfigs int

	inflight    atomic.Int64
	maxInflight atomic.Int64
}

// NewMockVPP creates a new mock VPP server accepting sToken.
func NewMockVPP(sToken string) *MockVPP {
	mock := &MockVPP{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		sToken:     sToken,
		batchToken: "mock-batch-token",
		batches:    make(map[string][]MockBatch),
		requests:   make(map[string]int),
		lastParams: make(map[string]map[string]any),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case PathServiceConfig:
			mock.serviceConfigHandler(w, r)
		case PathClientConfig:
			mock.clientConfigHandler(w, r)
		case PathGetUsers:
			mock.batchHandler(w, r, "getUsers", "users")
		case PathGetLicenses:
			mock.batchHandler(w, r, "getLicenses", "licenses")
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the base service URL of the mock.
func (m *MockVPP) URL() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockVPP) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockVPP) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetBatches configures the batches served for op ("getUsers" or "getLicenses").
func (m *MockVPP) SetBatches(op string, batches ...MockBatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[op] = batches
}

// SetBatchToken sets the token returned by the probe and required on every
// subsequent batch.
func (m *MockVPP) SetBatchToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchToken = token
}

// SetClientContext sets the registered client context (raw JSON string).
func (m *MockVPP) SetClientContext(clientContext string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientContext = clientContext
}

// SetSToken changes the accepted session token.
func (m *MockVPP) SetSToken(sToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sToken = sToken
}

// ClientContext returns the currently registered client context.
func (m *MockVPP) ClientContext() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clientContext
}

// Requests returns the number of requests received for op.
func (m *MockVPP) Requests(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[op]
}

// LastParams returns the body of the last request received for op.
func (m *MockVPP) LastParams(op string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastParams[op]
}

// ServiceConfigRequests returns the number of discovery requests.
func (m *MockVPP) ServiceConfigRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.serviceConfigs
}

// MaxInflight returns the highest number of concurrent batch requests seen.
func (m *MockVPP) MaxInflight() int {
	return int(m.maxInflight.Load())
}

// Reset clears all tracking counters.
func (m *MockVPP) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.lastParams = make(map[string]map[string]any)
	m.serviceConfigs = 0
	m.maxInflight.Store(0)
}

func (m *MockVPP) serviceConfigHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.serviceConfigs++
	m.mu.Unlock()

	base := m.server.URL
	writeJSON(w, http.StatusOK, map[string]any{
		"clientConfigSrvUrl": base + PathClientConfig,
		"getUsersSrvUrl":     base + PathGetUsers,
		"getLicensesSrvUrl":  base + PathGetLicenses,
		"errorCodes":         []any{},
	})
}

func (m *MockVPP) clientConfigHandler(w http.ResponseWriter, r *http.Request) {
	params, ok := m.authenticate(w, r, "clientConfig")
	if !ok {
		return
	}

	m.mu.Lock()
	if claim, ok := params["clientContext"].(string); ok && claim != "" {
		m.clientContext = claim
	}
	clientContext := m.clientContext
	m.mu.Unlock()

	body := map[string]any{"status": 0}
	if clientContext != "" {
		body["clientContext"] = clientContext
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *MockVPP) batchHandler(w http.ResponseWriter, r *http.Request, op, resultKey string) {
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		seen := m.maxInflight.Load()
		if n <= seen || m.maxInflight.CompareAndSwap(seen, n) {
			break
		}
	}

	params, ok := m.authenticate(w, r, op)
	if !ok {
		return
	}

	m.mu.RLock()
	batches := m.batches[op]
	batchToken := m.batchToken
	m.mu.RUnlock()

	if len(batches) == 0 {
		batches = []MockBatch{{}}
	}

	index := 0
	if token, ok := params["batchToken"].(string); ok && token != "" {
		if token != batchToken {
			writeError(w, http.StatusOK, 9628, "Invalid batch token")
			return
		}
		idx, ok := params["overrideIndex"].(float64)
		if !ok || int(idx) < 1 || int(idx) >= len(batches) {
			writeError(w, http.StatusOK, 9600, "Invalid overrideIndex")
			return
		}
		index = int(idx)
	}

	batch := batches[index]
	if batch.Delay > 0 {
		select {
		case <-time.After(batch.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if batch.Status != 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       batch.Status,
			"errorNumber":  batch.ErrorNumber,
			"errorMessage": batch.ErrorMessage,
		})
		return
	}

	items := batch.Items
	if items == nil {
		items = []any{}
	}
	body := map[string]any{
		"status":          0,
		"totalBatchCount": len(batches),
		resultKey:         items,
	}
	if len(batches) > 1 {
		body["batchToken"] = batchToken
	}
	if batch.SinceModifiedToken != "" {
		body["sinceModifiedToken"] = batch.SinceModifiedToken
	}
	writeJSON(w, http.StatusOK, body)
}

// authenticate decodes the request body, records it and checks the session token.
func (m *MockVPP) authenticate(w http.ResponseWriter, r *http.Request, op string) (map[string]any, bool) {
	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, 9600, "Invalid request body")
		return nil, false
	}

	m.mu.Lock()
	m.requests[op]++
	m.lastParams[op] = params
	sToken := m.sToken
	m.mu.Unlock()

	if token, _ := params["sToken"].(string); strings.TrimSpace(token) == "" || token != sToken {
		writeError(w, http.StatusOK, 9625, "The sToken has expired")
		return nil, false
	}
	return params, true
}

// NewURLMovedHandler returns a handler answering with error 9617.
func NewURLMovedHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusOK, 9617, "Service URL has moved")
	}
}

// NewServerErrorHandler returns a handler answering with a bare HTTP status.
func NewServerErrorHandler(statusCode int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
	}
}

func writeError(w http.ResponseWriter, httpStatus, errorNumber int, message string) {
	writeJSON(w, httpStatus, map[string]any{
		"status":       -1,
		"errorNumber":  errorNumber,
		"errorMessage": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
