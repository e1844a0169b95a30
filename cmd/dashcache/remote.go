package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/dashcache/internal/config"
	"github.com/omarluq/dashcache/internal/gateway"
)

// remote talks to the admin endpoints of a running gateway.
type remote struct {
	client   *http.Client
	baseURL  string
	adminKey string
}

// newRemote resolves the gateway address from --addr, falling back to the
// listen address and admin key of the config file.
func newRemote(cmd *cobra.Command) (*remote, error) {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return nil, fmt.Errorf("failed to get addr flag: %w", err)
	}

	r := &remote{client: &http.Client{Timeout: 5 * time.Second}}
	if cfg, loadErr := config.Load(configPath()); loadErr == nil {
		r.adminKey = cfg.Server.AdminKey
		if addr == "" {
			addr = cfg.Server.GetListen()
		}
	}
	if addr == "" {
		addr = config.DefaultListen
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	r.baseURL = strings.TrimSuffix(addr, "/")
	return r, nil
}

func addAddrFlag(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "gateway address (default: server.listen from config)")
}

// call sends a request and decodes a JSON response into out.
func (r *remote) call(method, path string, query url.Values, out any) error {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, http.NoBody) //nolint:noctx // short-lived CLI call
	if err != nil {
		return err
	}
	if r.adminKey != "" {
		req.Header.Set(gateway.HeaderAdminKey, r.adminKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway not reachable at %s: %w", r.baseURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp gateway.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
