package client

import (
	"context"

	"github.com/Sternrassler/vpp-client/pkg/pagination"
	"github.com/Sternrassler/vpp-client/pkg/vpp"
)

// FetchUsers returns every user, retired ones included. With a non-empty
// sinceModifiedToken only users changed since that cursor are returned.
func (c *Client) FetchUsers(ctx context.Context, sinceModifiedToken string) (*pagination.Response[vpp.User], error) {
	return fetchAs[vpp.User](ctx, c, vpp.OpGetUsers, sinceModifiedToken, vpp.Params{vpp.ParamIncludeRetired: 1})
}

// FetchLicenses returns every license, or those changed since sinceModifiedToken.
func (c *Client) FetchLicenses(ctx context.Context, sinceModifiedToken string) (*pagination.Response[vpp.License], error) {
	return fetchAs[vpp.License](ctx, c, vpp.OpGetLicenses, sinceModifiedToken, nil)
}

func fetchAs[T any](ctx context.Context, c *Client, op vpp.Operation, since string, params vpp.Params) (*pagination.Response[T], error) {
	raw, err := c.fetcher.Fetch(ctx, op, since, params)
	if err != nil {
		c.handleError(ctx, err)
		return nil, err
	}
	return pagination.Decode[T](op, raw)
}
