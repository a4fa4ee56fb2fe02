package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/vpp-client/pkg/logging"
	"github.com/Sternrassler/vpp-client/pkg/vpp"
)

// register confirms that the token's client context belongs to this client.
// An unclaimed token is claimed with the configured hostname and GUID.
func (c *Client) register(ctx context.Context) error {
	resp, err := c.Execute(ctx, vpp.OpClientConfig, nil)
	if err != nil {
		return fmt.Errorf("read client config: %w", err)
	}

	raw := resp.String(vpp.ParamClientContext)
	if raw == "" {
		claim, err := json.Marshal(vpp.ClientContext{
			Hostname: c.config.ClientHost,
			GUID:     c.config.ClientGUID,
		})
		if err != nil {
			return fmt.Errorf("encode client context: %w", err)
		}

		resp, err = c.Execute(ctx, vpp.OpClientConfig, vpp.Params{vpp.ParamClientContext: string(claim)})
		if err != nil {
			return fmt.Errorf("claim client context: %w", err)
		}
		raw = resp.String(vpp.ParamClientContext)

		c.logger.Info().
			Str("hostname", c.config.ClientHost).
			Str("guid", c.config.ClientGUID).
			Str("stoken", logging.MaskToken(c.config.SToken)).
			Msg("Claimed VPP client context")
	}

	var owner vpp.ClientContext
	if err := json.Unmarshal([]byte(raw), &owner); err != nil {
		return &vpp.ProtocolError{Operation: vpp.OpClientConfig, Index: vpp.NoIndex, Reason: "invalid clientContext", Err: err}
	}

	if owner.Hostname != c.config.ClientHost || owner.GUID != c.config.ClientGUID {
		c.logger.Error().
			Str("registered_hostname", owner.Hostname).
			Str("registered_guid", owner.GUID).
			Str("hostname", c.config.ClientHost).
			Str("guid", c.config.ClientGUID).
			Msg("VPP token is registered to another client")
		return &vpp.ProtocolError{
			Operation: vpp.OpClientConfig,
			Index:     vpp.NoIndex,
			Reason:    fmt.Sprintf("client context mismatch: token is registered to %s %s", owner.Hostname, owner.GUID),
		}
	}

	c.logger.Debug().Str("hostname", owner.Hostname).Msg("VPP client context confirmed")
	return nil
}
