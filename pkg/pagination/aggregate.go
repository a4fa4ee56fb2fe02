package pagination

import (
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/vpp-client/pkg/vpp"
)

// Response is the consolidated result of one batched fetch.
// Count always equals len(Results) and Results never holds empty entries.
type Response[T any] struct {
	Results            []T    `json:"results"`
	Count              int    `json:"count"`
	SinceModifiedToken string `json:"sinceModifiedToken"`
}

// Aggregate merges batch responses that are already ordered by overrideIndex
// (batch 0 first). Entries are concatenated in that order with empty entries
// dropped, and the cursor comes from the last response, i.e. the highest
// index, regardless of which batch completed last.
func Aggregate(op vpp.Operation, ordered []*vpp.RawResponse) (*Response[json.RawMessage], error) {
	key, ok := vpp.ResultKey(op)
	if !ok {
		return nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "operation has no result list"}
	}
	if len(ordered) == 0 {
		return nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "no batch responses"}
	}

	results := make([]json.RawMessage, 0)
	for i, r := range ordered {
		if r == nil {
			return nil, &vpp.ProtocolError{Operation: op, Index: i, Reason: "missing batch response"}
		}

		list, err := r.Results(key)
		if err != nil {
			return nil, &vpp.ProtocolError{Operation: op, Index: i, Reason: "invalid result list", Err: err}
		}

		for _, entry := range list {
			if vpp.IsEmptyEntry(entry) {
				continue
			}
			results = append(results, entry)
		}
	}

	return &Response[json.RawMessage]{
		Results:            results,
		Count:              len(results),
		SinceModifiedToken: ordered[len(ordered)-1].SinceModifiedToken,
	}, nil
}

// Decode converts raw aggregated entries into typed entities.
func Decode[T any](op vpp.Operation, raw *Response[json.RawMessage]) (*Response[T], error) {
	out := &Response[T]{
		Results:            make([]T, 0, len(raw.Results)),
		SinceModifiedToken: raw.SinceModifiedToken,
	}

	for i, entry := range raw.Results {
		var v T
		if err := json.Unmarshal(entry, &v); err != nil {
			return nil, &vpp.ProtocolError{
				Operation: op,
				Index:     vpp.NoIndex,
				Reason:    fmt.Sprintf("decode result %d", i),
				Err:       err,
			}
		}
		out.Results = append(out.Results, v)
	}
	out.Count = len(out.Results)

	return out, nil
}
