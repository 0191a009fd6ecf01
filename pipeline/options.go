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

package pipeline

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/blinklabs-io/vote-inspector/anchor"
	"github.com/blinklabs-io/vote-inspector/committee"
	"github.com/blinklabs-io/vote-inspector/validate"
	"github.com/blinklabs-io/vote-inspector/wallet"
	"github.com/prometheus/client_golang/prometheus"
)

// AnchorChecker verifies a metadata anchor. It is satisfied by *anchor.Checker
type AnchorChecker interface {
	Check(ctx context.Context, anchorURL string, expectedHash string) bool
}

// WalletFunc returns the latest wallet, or nil when disconnected
type WalletFunc func() wallet.Wallet

// PipelineConfig holds configuration for a Pipeline.
type PipelineConfig struct {
	// Workers is the number of parallel workers used by ProcessAll.
	Workers int
	// AnchorWorkers limits concurrent anchor checks per transaction.
	AnchorWorkers int
	// AnchorChecker verifies metadata anchors.
	AnchorChecker AnchorChecker
	// SelectedMember is the hot credential of the selected committee member.
	// The member check is skipped when empty.
	SelectedMember string
	// AllowList holds the committee script credentials per network. The
	// committee credential check is skipped when empty.
	AllowList committee.AllowList
	// WalletFunc provides the wallet for wallet-context validation.
	WalletFunc WalletFunc
	// Logger is used by the pipeline and its predicates.
	Logger *slog.Logger
	// Registerer receives the prometheus collectors. Collectors are not
	// registered when nil.
	Registerer prometheus.Registerer
}

// DefaultPipelineConfig returns a PipelineConfig with sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	numCPU := runtime.NumCPU()

	workers := numCPU / 4
	if workers < 2 {
		workers = 2
	}

	return PipelineConfig{
		Workers:       workers,
		AnchorWorkers: 4,
	}
}

// PipelineOption is a functional option for configuring a Pipeline.
type PipelineOption func(*PipelineConfig)

// WithConfig applies a complete PipelineConfig, replacing all default values.
//
// Note: Options applied after WithConfig will still override the config values.
func WithConfig(config PipelineConfig) PipelineOption {
	return func(c *PipelineConfig) {
		*c = config
	}
}

// WithWorkers sets the number of workers used by ProcessAll.
func WithWorkers(n int) PipelineOption {
	return func(c *PipelineConfig) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithAnchorWorkers limits concurrent anchor checks within a transaction.
func WithAnchorWorkers(n int) PipelineOption {
	return func(c *PipelineConfig) {
		if n > 0 {
			c.AnchorWorkers = n
		}
	}
}

// WithAnchorChecker sets the metadata anchor checker.
func WithAnchorChecker(checker AnchorChecker) PipelineOption {
	return func(c *PipelineConfig) {
		if checker != nil {
			c.AnchorChecker = checker
		}
	}
}

// WithSelectedMember sets the hot credential of the selected committee member.
func WithSelectedMember(hotCredential string) PipelineOption {
	return func(c *PipelineConfig) {
		c.SelectedMember = hotCredential
	}
}

// WithAllowList sets the committee credential allow-list.
func WithAllowList(allowList committee.AllowList) PipelineOption {
	return func(c *PipelineConfig) {
		c.AllowList = allowList
	}
}

// WithWalletFunc sets the wallet provider.
func WithWalletFunc(fn WalletFunc) PipelineOption {
	return func(c *PipelineConfig) {
		c.WalletFunc = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(c *PipelineConfig) {
		c.Logger = logger
	}
}

// WithPromRegistry sets the prometheus registerer for pipeline metrics.
func WithPromRegistry(registerer prometheus.Registerer) PipelineOption {
	return func(c *PipelineConfig) {
		c.Registerer = registerer
	}
}

// ProcessOptions holds the context for ProcessTransactionBody
type ProcessOptions struct {
	AnchorChecker  AnchorChecker
	AnchorWorkers  int
	SelectedMember string
	AllowList      committee.AllowList
	Predicates     *validate.Predicates
}

func (c PipelineConfig) processOptions() ProcessOptions {
	return ProcessOptions{
		AnchorChecker:  c.AnchorChecker,
		AnchorWorkers:  c.AnchorWorkers,
		SelectedMember: c.SelectedMember,
		AllowList:      c.AllowList,
		Predicates:     validate.New(c.Logger),
	}
}

func (c *PipelineConfig) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.AnchorChecker == nil {
		c.AnchorChecker = anchor.NewChecker(anchor.WithLogger(c.Logger))
	}
}
