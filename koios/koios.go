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

// Package koios is a small client for the Koios REST API, used to list the
// governance actions that are still open for voting.
package koios

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMainnetURL = "https://api.koios.rest/api/v1"
	DefaultPreprodURL = "https://preprod.koios.rest/api/v1"

	networkMainnet = 1

	// maxResponseBytes limits API responses to 10 MiB
	maxResponseBytes = 10 << 20
)

var ErrEmptyResponse = errors.New("empty response from Koios")

// Proposal is a governance action as listed by /proposal_list
type Proposal struct {
	MetaJSON     json.RawMessage `json:"meta_json"`
	ProposalID   string          `json:"proposal_id"`
	ProposalType string          `json:"proposal_type"`
	Expiration   *uint64         `json:"expiration"`
}

// LiveData is the current epoch, its end time and the live governance actions
type LiveData struct {
	Epoch      uint64     `json:"epoch"`
	EndTime    int64      `json:"endTime"`
	LiveGAData []Proposal `json:"liveGAData"`
}

// Client is an HTTP client for the Koios API.
type Client struct {
	mainnetURL string
	preprodURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom *http.Client. The default client only follows
// HTTPS redirects; a custom client should set its own redirect policy.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMainnetURL overrides the mainnet API base URL
func WithMainnetURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.mainnetURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithPreprodURL overrides the preprod API base URL
func WithPreprodURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.preprodURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		mainnetURL: DefaultMainnetURL,
		preprodURL: DefaultPreprodURL,
		httpClient: &http.Client{
			Timeout:       30 * time.Second,
			CheckRedirect: httpsOnlyRedirect,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "koios")
	return c
}

// httpsOnlyRedirect rejects redirects to non-HTTPS URLs
func httpsOnlyRedirect(
	req *http.Request,
	via []*http.Request,
) error {
	if len(via) >= 10 {
		return errors.New("too many redirects")
	}
	if req.URL.Scheme != "https" {
		return fmt.Errorf(
			"redirect to non-HTTPS URL blocked: %s",
			req.URL,
		)
	}
	return nil
}

// BaseURL returns the API base URL for a network ID. Anything other than
// mainnet uses preprod.
func (c *Client) BaseURL(networkId uint) string {
	if networkId == networkMainnet {
		return c.mainnetURL
	}
	return c.preprodURL
}

// CurrentEpoch returns the epoch of the chain tip
func (c *Client) CurrentEpoch(ctx context.Context, networkId uint) (uint64, error) {
	var tip []struct {
		EpochNo uint64 `json:"epoch_no"`
	}
	reqURL := c.BaseURL(networkId) + "/tip?select=epoch_no"
	if err := c.getJSON(ctx, reqURL, "tip", &tip); err != nil {
		return 0, err
	}
	if len(tip) == 0 {
		return 0, fmt.Errorf("error fetching tip: %w", ErrEmptyResponse)
	}
	return tip[0].EpochNo, nil
}

// EpochEndTime returns the end time of an epoch as a unix timestamp
func (c *Client) EpochEndTime(
	ctx context.Context,
	networkId uint,
	epoch uint64,
) (int64, error) {
	var info []struct {
		EndTime int64 `json:"end_time"`
	}
	query := url.Values{}
	query.Set("select", "end_time")
	query.Set("_epoch_no", strconv.FormatUint(epoch, 10))
	query.Set("_include_next_epoch", "false")
	reqURL := c.BaseURL(networkId) + "/epoch_info?" + query.Encode()
	if err := c.getJSON(ctx, reqURL, "epoch end time", &info); err != nil {
		return 0, err
	}
	if len(info) == 0 {
		return 0, fmt.Errorf("error fetching epoch end time: %w", ErrEmptyResponse)
	}
	return info[0].EndTime, nil
}

// LiveProposals returns the governance actions expiring in epoch or later
func (c *Client) LiveProposals(
	ctx context.Context,
	networkId uint,
	epoch uint64,
) ([]Proposal, error) {
	var proposals []Proposal
	reqURL := fmt.Sprintf(
		"%s/proposal_list?select=meta_json,proposal_id,proposal_type,expiration&expiration=gte.%d",
		c.BaseURL(networkId),
		epoch,
	)
	if err := c.getJSON(ctx, reqURL, "live governance actions", &proposals); err != nil {
		return nil, err
	}
	if proposals == nil {
		proposals = []Proposal{}
	}
	return proposals, nil
}

// LiveData queries the current epoch, its end time and the live governance
// actions in sequence
func (c *Client) LiveData(ctx context.Context, networkId uint) (*LiveData, error) {
	epoch, err := c.CurrentEpoch(ctx, networkId)
	if err != nil {
		return nil, err
	}
	endTime, err := c.EpochEndTime(ctx, networkId, epoch)
	if err != nil {
		return nil, err
	}
	proposals, err := c.LiveProposals(ctx, networkId, epoch)
	if err != nil {
		return nil, err
	}
	c.logger.Debug(
		"fetched live governance actions",
		"network", networkId,
		"epoch", epoch,
		"count", len(proposals),
	)
	return &LiveData{
		Epoch:      epoch,
		EndTime:    endTime,
		LiveGAData: proposals,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, what string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured base URL
	if err != nil {
		return fmt.Errorf("error fetching %s: %w", what, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("error fetching %s: %d", what, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s: %w", what, err)
	}
	return nil
}
