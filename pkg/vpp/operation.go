// Package vpp defines the wire model of the Volume Purchase Program service:
// operation names, raw responses, directory entities and the error taxonomy
// shared by the client and the batch fetcher.
package vpp

// Operation names a VPP service endpoint (e.g. "getUsers").
// The URL for each operation is discovered from the service configuration.
type Operation string

// Known operations.
const (
	OpGetUsers     Operation = "getUsers"
	OpGetLicenses  Operation = "getLicenses"
	OpClientConfig Operation = "clientConfig"

	// OpServiceConfig is the discovery endpoint listing every other
	// operation's URL. It is resolved against the base service URL.
	OpServiceConfig Operation = "VPPServiceConfigSrv"
)

// StatusSuccess is the value of the "status" field on a successful response.
const StatusSuccess = 0

// ErrorNumberURLMoved is returned when a service URL has changed and the
// service configuration must be fetched again.
const ErrorNumberURLMoved = 9617

// Request parameter names.
const (
	ParamSToken             = "sToken"
	ParamSinceModifiedToken = "sinceModifiedToken"
	ParamBatchToken         = "batchToken"
	ParamOverrideIndex      = "overrideIndex"
	ParamIncludeRetired     = "includeRetired"
	ParamClientContext      = "clientContext"
)

// Params are the operation-specific request parameters.
// The executor adds the session token before sending.
type Params map[string]any

// Clone returns a shallow copy of p that is safe to extend.
func (p Params) Clone() Params {
	out := make(Params, len(p)+4)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// resultKeys maps batched operations to the response field holding their results.
var resultKeys = map[Operation]string{
	OpGetUsers:    "users",
	OpGetLicenses: "licenses",
}

// ResultKey returns the response field that carries the result list of op.
// The boolean is false for operations that are not batched.
func ResultKey(op Operation) (string, bool) {
	key, ok := resultKeys[op]
	return key, ok
}
