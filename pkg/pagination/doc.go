// Package pagination provides the batched fetch protocol for VPP list endpoints.
//
// VPP delivers large result sets (users, licenses) in numbered batches that
// share a batch token. The first request (the probe, batch 0) reveals
// totalBatchCount and the batch token; the remaining batches are requested
// with overrideIndex 1..totalBatchCount-1.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher(vppClient, config)
//	resp, err := fetcher.Fetch(ctx, vpp.OpGetLicenses, lastToken, nil)
//
// The batch fetcher:
//   - Submits the probe into a bounded pool (default 5 in flight, per Apple)
//   - Fans the remaining batches out into the same pool
//   - Joins once on the whole set
//   - Validates every batch; any failure fails the fetch, no partial data
//   - Merges results in overrideIndex order, never completion order
//   - Returns the sinceModifiedToken of the highest index
package pagination
