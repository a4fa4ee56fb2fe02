package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/logging"
	"github.com/Sternrassler/vpp-client/pkg/vpp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency is the in-flight ceiling Apple asks VPP clients to honor.
const DefaultMaxConcurrency = 5

// MaxBatchCount bounds the totalBatchCount accepted from a probe response.
const MaxBatchCount = 100000

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of requests in flight for one
	// fetch, probe included. This is a server-imposed contract; lower it
	// only for tests.
	MaxConcurrency int
	// Timeout per batch request
	Timeout time.Duration
}

// DefaultConfig returns the configuration VPP expects
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: DefaultMaxConcurrency,
		Timeout:        30 * time.Second,
	}
}

// Executor issues one signed request without validating the response.
// A returned error means no response was obtained.
type Executor interface {
	Send(ctx context.Context, op vpp.Operation, params vpp.Params) (*vpp.RawResponse, error)
}

// BatchRequest describes one request of a batched fetch.
// The probe has OverrideIndex 0 and no BatchToken.
type BatchRequest struct {
	Operation          vpp.Operation
	SinceModifiedToken string
	BatchToken         string
	OverrideIndex      int
}

// IsProbe reports whether r is batch 0.
func (r BatchRequest) IsProbe() bool {
	return r.OverrideIndex == 0
}

// Params renders r on top of the operation-specific params.
func (r BatchRequest) Params(base vpp.Params) vpp.Params {
	params := base.Clone()
	if r.IsProbe() {
		if r.SinceModifiedToken != "" {
			params[vpp.ParamSinceModifiedToken] = r.SinceModifiedToken
		}
		return params
	}
	params[vpp.ParamBatchToken] = r.BatchToken
	params[vpp.ParamOverrideIndex] = r.OverrideIndex
	return params
}

// slot receives the outcome of exactly one batch request.
type slot struct {
	resp *vpp.RawResponse
	err  error
	// cancelled is set when err stems from a sibling's failure
	// cancelling the group rather than from this request itself.
	cancelled bool
}

// BatchFetcher runs the probe, fan-out, join and merge of a batched fetch.
type BatchFetcher struct {
	executor Executor
	config   Config
	logger   zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(executor Executor, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &BatchFetcher{
		executor: executor,
		config:   config,
		logger:   logging.NewLogger("vpp-batch"),
	}
}

// Config returns the effective configuration.
func (bf *BatchFetcher) Config() Config {
	return bf.config
}

// Fetch retrieves every batch of op and merges them into one response.
// params are sent with every request of the fetch. Any failing batch fails
// the whole fetch with the first error in index order; no partial result is
// returned.
func (bf *BatchFetcher) Fetch(ctx context.Context, op vpp.Operation, sinceModifiedToken string, params vpp.Params) (*Response[json.RawMessage], error) {
	start := time.Now()

	resp, err := bf.fetch(ctx, op, sinceModifiedToken, params)
	FetchDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := vpp.KindOf(err)
		FetchFailures.WithLabelValues(string(op), string(kind)).Inc()
		bf.logger.Warn().
			Err(err).
			Str("operation", string(op)).
			Str("error_kind", string(kind)).
			Dur("duration", time.Since(start)).
			Msg("Batched fetch failed")
		return nil, err
	}

	bf.logger.Info().
		Str("operation", string(op)).
		Int("count", resp.Count).
		Dur("duration", time.Since(start)).
		Msg("Batched fetch complete")

	return resp, nil
}

func (bf *BatchFetcher) fetch(ctx context.Context, op vpp.Operation, sinceModifiedToken string, params vpp.Params) (*Response[json.RawMessage], error) {
	if _, ok := vpp.ResultKey(op); !ok {
		return nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "operation is not batched"}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)

	// Batch 0 goes through the same pool as the fan-out. Only its own
	// completion is awaited here; the other pool slots stay available.
	probe := &slot{}
	probeDone := make(chan struct{})
	g.Go(func() error {
		defer close(probeDone)
		return bf.run(gctx, probe, BatchRequest{Operation: op, SinceModifiedToken: sinceModifiedToken}, params)
	})
	<-probeDone

	total, batchToken, err := checkProbe(op, probe)
	if err != nil {
		_ = g.Wait()
		return nil, err
	}

	bf.logger.Info().
		Str("operation", string(op)).
		Int("total_batches", total).
		Str("batch_token", batchToken).
		Msg("Starting batched fetch")

	slots := make([]*slot, total)
	slots[0] = probe
	for i := 1; i < total; i++ {
		s := &slot{}
		slots[i] = s
		req := BatchRequest{Operation: op, BatchToken: batchToken, OverrideIndex: i}
		g.Go(func() error {
			return bf.run(gctx, s, req, params)
		})
	}

	// Single barrier for the whole set; errors live in the slots.
	_ = g.Wait()

	ordered, err := collect(op, slots)
	if err != nil {
		return nil, err
	}

	return Aggregate(op, ordered)
}

// run executes one batch request and records its outcome in s. It returns a
// non-nil error only for transport failures, which cancels pending siblings.
func (bf *BatchFetcher) run(ctx context.Context, s *slot, req BatchRequest, base vpp.Params) error {
	if err := ctx.Err(); err != nil {
		s.err = &vpp.TransportError{Operation: req.Operation, Index: req.OverrideIndex, Err: err}
		s.cancelled = true
		return nil
	}

	BatchesTotal.WithLabelValues(string(req.Operation)).Inc()
	InflightRequests.Inc()
	defer InflightRequests.Dec()

	reqCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := bf.executor.Send(reqCtx, req.Operation, req.Params(base))
	if err != nil {
		s.err = withIndex(err, req.OverrideIndex)
		if ctx.Err() != nil {
			s.cancelled = true
			bf.logger.Debug().
				Str("operation", string(req.Operation)).
				Int("batch_index", req.OverrideIndex).
				Msg("Batch request cancelled")
			return nil
		}

		bf.logger.Warn().
			Err(err).
			Str("operation", string(req.Operation)).
			Int("batch_index", req.OverrideIndex).
			Msg("Batch request failed")

		if vpp.KindOf(err) == vpp.KindTransport {
			return s.err
		}
		return nil
	}

	s.resp = resp
	bf.logger.Debug().
		Str("operation", string(req.Operation)).
		Int("batch_index", req.OverrideIndex).
		Dur("duration", time.Since(start)).
		Msg("Batch received")

	return nil
}

// checkProbe validates batch 0 before any fan-out is attempted.
func checkProbe(op vpp.Operation, probe *slot) (int, string, error) {
	if probe.err != nil {
		return 0, "", probe.err
	}
	if err := vpp.Validate(op, 0, probe.resp); err != nil {
		return 0, "", err
	}

	if probe.resp.TotalBatchCount == nil {
		return 0, "", &vpp.ProtocolError{Operation: op, Index: 0, Reason: "probe response has no totalBatchCount"}
	}
	total := *probe.resp.TotalBatchCount
	if total < 0 {
		return 0, "", &vpp.ProtocolError{Operation: op, Index: 0, Reason: "probe response has negative totalBatchCount"}
	}
	if total > MaxBatchCount {
		return 0, "", &vpp.ProtocolError{Operation: op, Index: 0, Reason: fmt.Sprintf("probe response totalBatchCount %d exceeds %d", total, MaxBatchCount)}
	}
	// An empty result set is reported as zero batches; the probe is still batch 0.
	if total == 0 {
		total = 1
	}
	if total > 1 && probe.resp.BatchToken == "" {
		return 0, "", &vpp.ProtocolError{Operation: op, Index: 0, Reason: "probe response has no batchToken"}
	}

	return total, probe.resp.BatchToken, nil
}

// collect scans the joined slots in index order and returns the responses,
// or the first failure. Cancellation fallout is reported only when no batch
// failed on its own.
func collect(op vpp.Operation, slots []*slot) ([]*vpp.RawResponse, error) {
	ordered := make([]*vpp.RawResponse, len(slots))
	var cancelledErr error

	for i, s := range slots {
		if s.err != nil {
			if s.cancelled {
				if cancelledErr == nil {
					cancelledErr = s.err
				}
				continue
			}
			return nil, s.err
		}
		if err := vpp.Validate(op, i, s.resp); err != nil {
			return nil, err
		}
		ordered[i] = s.resp
	}

	if cancelledErr != nil {
		return nil, cancelledErr
	}
	return ordered, nil
}

// withIndex stamps the batch index on executor errors.
func withIndex(err error, index int) error {
	var transportErr *vpp.TransportError
	if errors.As(err, &transportErr) {
		return &vpp.TransportError{Operation: transportErr.Operation, Index: index, Err: transportErr.Err}
	}
	var protocolErr *vpp.ProtocolError
	if errors.As(err, &protocolErr) {
		return &vpp.ProtocolError{Operation: protocolErr.Operation, Index: index, Reason: protocolErr.Reason, Err: protocolErr.Err}
	}
	return err
}
