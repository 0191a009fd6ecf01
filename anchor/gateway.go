// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package anchor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TestCID is a small, widely pinned object used to probe gateways
const TestCID = "bafkreiamr5e5khvz5gtkorzkbgp3o3nobdcx65xj5hqxpmlnwbc6br4fc4"

var ErrNoGateway = errors.New("no IPFS gateway is available")

// GatewayCache remembers the first reachable IPFS gateway from a configured
// list. The cached gateway is only replaced by an explicit Refresh or after
// Invalidate
type GatewayCache struct {
	gateways   []string
	httpClient *http.Client
	logger     *slog.Logger
	mutex      sync.RWMutex
	gateway    string
	group      singleflight.Group
}

type GatewayCacheOption func(*GatewayCache)

func WithGatewayHTTPClient(hc *http.Client) GatewayCacheOption {
	return func(g *GatewayCache) {
		if hc != nil {
			g.httpClient = hc
		}
	}
}

// WithGatewayTimeout sets the timeout of the default probe client
func WithGatewayTimeout(timeout time.Duration) GatewayCacheOption {
	return func(g *GatewayCache) {
		if timeout > 0 {
			g.httpClient.Timeout = timeout
		}
	}
}

func WithGatewayLogger(logger *slog.Logger) GatewayCacheOption {
	return func(g *GatewayCache) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGatewayCache returns a cache over gateways, which are host/path prefixes
// such as "ipfs.io/ipfs/". A scheme is optional and defaults to https
func NewGatewayCache(gateways []string, opts ...GatewayCacheOption) *GatewayCache {
	g := &GatewayCache{
		httpClient: newHTTPClient(),
		logger:     slog.Default(),
	}
	for _, gateway := range gateways {
		gateway = strings.TrimSpace(gateway)
		if gateway != "" {
			g.gateways = append(g.gateways, gateway)
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "ipfs-gateway")
	return g
}

// Get returns the cached gateway, probing for one if none is cached
func (g *GatewayCache) Get(ctx context.Context) (string, error) {
	g.mutex.RLock()
	gateway := g.gateway
	g.mutex.RUnlock()
	if gateway != "" {
		return gateway, nil
	}
	return g.Refresh(ctx)
}

// Refresh probes the configured gateways in order and caches the first one
// that answers. Concurrent calls share a single probe
func (g *GatewayCache) Refresh(ctx context.Context) (string, error) {
	ret, err, _ := g.group.Do("refresh", func() (any, error) {
		gateway, err := g.probe(ctx)
		g.mutex.Lock()
		g.gateway = gateway
		g.mutex.Unlock()
		return gateway, err
	})
	if err != nil {
		return "", err
	}
	return ret.(string), nil
}

// Invalidate drops the cached gateway
func (g *GatewayCache) Invalidate() {
	g.mutex.Lock()
	g.gateway = ""
	g.mutex.Unlock()
}

func (g *GatewayCache) probe(ctx context.Context) (string, error) {
	for _, gateway := range g.gateways {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		probeURL := gatewayBase(gateway) + TestCID
		g.logger.Debug("checking IPFS gateway", "gateway", gateway)
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
		if err != nil {
			g.logger.Debug("invalid IPFS gateway", "gateway", gateway, "error", err)
			continue
		}
		resp, err := g.httpClient.Do(req) //nolint:gosec // gateway list comes from configuration
		if err != nil {
			g.logger.Debug("error checking IPFS gateway", "gateway", gateway, "error", err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			g.logger.Debug("IPFS gateway is up", "gateway", gateway)
			return gateway, nil
		}
		g.logger.Debug(
			"IPFS gateway returned unexpected status",
			"gateway", gateway,
			"status", resp.StatusCode,
		)
	}
	return "", ErrNoGateway
}

func gatewayBase(gateway string) string {
	if strings.HasPrefix(gateway, "http://") || strings.HasPrefix(gateway, "https://") {
		return gateway
	}
	return "https://" + gateway
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:       30 * time.Second,
		CheckRedirect: httpsOnlyRedirect,
	}
}

// httpsOnlyRedirect rejects redirects to non-HTTPS URLs
func httpsOnlyRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("too many redirects")
	}
	if req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to non-HTTPS URL blocked: %s", req.URL)
	}
	return nil
}
