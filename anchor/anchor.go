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

// Package anchor verifies governance metadata anchors by fetching the anchor
// content and comparing its Blake2b-256 digest with the on-chain hash.
package anchor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blinklabs-io/vote-inspector/ledger"
)

// Unavailable is used in place of the URL and hash of a vote without an anchor
const Unavailable = "unavailable"

const DefaultMaxBodySize = 10 << 20

var ErrBodyTooLarge = errors.New("anchor content exceeds maximum size")

type Checker struct {
	httpClient  *http.Client
	gateways    *GatewayCache
	logger      *slog.Logger
	maxBodySize int64
}

type CheckerOption func(*Checker)

// WithHTTPClient sets the client used to fetch anchor content. The default
// client only follows HTTPS redirects
func WithHTTPClient(hc *http.Client) CheckerOption {
	return func(c *Checker) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithGatewayCache sets the gateway cache used to rewrite ipfs:// URLs
func WithGatewayCache(gateways *GatewayCache) CheckerOption {
	return func(c *Checker) {
		c.gateways = gateways
	}
}

func WithLogger(logger *slog.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxBodySize limits how much anchor content is read
func WithMaxBodySize(size int64) CheckerOption {
	return func(c *Checker) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		httpClient:  newHTTPClient(),
		logger:      slog.Default(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "anchor")
	return c
}

// ResolveURL turns an anchor URL into a fetchable HTTP(S) URL. ipfs:// URLs
// are rewritten onto the current gateway and bare hosts get https://
func (c *Checker) ResolveURL(ctx context.Context, anchorURL string) (string, error) {
	switch {
	case strings.HasPrefix(anchorURL, "http://"), strings.HasPrefix(anchorURL, "https://"):
		return anchorURL, nil
	case strings.HasPrefix(anchorURL, "ipfs://"):
		if c.gateways == nil {
			return "", ErrNoGateway
		}
		gateway, err := c.gateways.Get(ctx)
		if err != nil {
			return "", err
		}
		return gatewayBase(gateway) + strings.TrimPrefix(anchorURL, "ipfs://"), nil
	}
	return "https://" + anchorURL, nil
}

// ContentHash fetches the anchor content and returns its Blake2b-256 hash
func (c *Checker) ContentHash(ctx context.Context, anchorURL string) (ledger.Blake2b256, error) {
	fetchURL, err := c.ResolveURL(ctx, anchorURL)
	if err != nil {
		return ledger.Blake2b256{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return ledger.Blake2b256{}, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req) //nolint:gosec // anchor URLs are user data, HTTPS-only redirect policy applies
	if err != nil {
		return ledger.Blake2b256{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ledger.Blake2b256{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return ledger.Blake2b256{}, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return ledger.Blake2b256{}, ErrBodyTooLarge
	}
	return ledger.Blake2b256Hash(body), nil
}

// Check reports whether the content at anchorURL hashes to expectedHash.
// Fetch failures and mismatches are false
func (c *Checker) Check(ctx context.Context, anchorURL string, expectedHash string) bool {
	if anchorURL == Unavailable || expectedHash == Unavailable {
		return false
	}
	if anchorURL == "" || expectedHash == "" {
		return false
	}
	hash, err := c.ContentHash(ctx, anchorURL)
	if err != nil {
		c.logger.Debug(
			"failed to fetch anchor content",
			"url", anchorURL,
			"error", err,
		)
		return false
	}
	if !strings.EqualFold(hash.String(), expectedHash) {
		c.logger.Debug(
			"anchor hash mismatch",
			"url", anchorURL,
			"expected", expectedHash,
			"actual", hash.String(),
		)
		return false
	}
	return true
}
