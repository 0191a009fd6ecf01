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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blinklabs-io/vote-inspector/committee"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "vote-inspector.config"

// Environment variables are read with this prefix, for example
// VOTE_INSPECTOR_BIND_ADDR
const envPrefix = "vote_inspector"

var ErrInvalidNetwork = errors.New("invalid network")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	Network         string             `yaml:"network"`
	BindAddr        string             `yaml:"bindAddr"        split_words:"true"`
	Port            uint               `yaml:"port"`
	MetricsPort     uint               `yaml:"metricsPort"     split_words:"true"`
	IpfsGateways    []string           `yaml:"ipfsGateways"    split_words:"true"`
	HTTPTimeout     time.Duration      `yaml:"httpTimeout"     envconfig:"HTTP_TIMEOUT"`
	ShutdownTimeout time.Duration      `yaml:"shutdownTimeout" split_words:"true"`
	ICCAllowList    map[string]string  `yaml:"iccAllowList"    envconfig:"ICC_ALLOW_LIST"`
	SelectedMember  string             `yaml:"selectedMember"  split_words:"true"`
	Members         []committee.Member `yaml:"members"         ignored:"true"`
	PendingTTL      time.Duration      `yaml:"pendingTTL"      envconfig:"PENDING_TTL"`
	KoiosMainnetURL string             `yaml:"koiosMainnetURL" envconfig:"KOIOS_MAINNET_URL"`
	KoiosPreprodURL string             `yaml:"koiosPreprodURL" envconfig:"KOIOS_PREPROD_URL"`
	Debug           bool               `yaml:"debug"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present
func DefaultConfig() *Config {
	return &Config{
		Network:         "mainnet",
		BindAddr:        "0.0.0.0",
		Port:            8080,
		MetricsPort:     0,
		IpfsGateways:    []string{"ipfs.io/ipfs/", "dweb.link/ipfs/"},
		HTTPTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		PendingTTL:      15 * time.Minute,
		KoiosMainnetURL: "https://api.koios.rest/api/v1",
		KoiosPreprodURL: "https://preprod.koios.rest/api/v1",
	}
}

// LoadConfig builds the configuration from the defaults, the config file and
// the environment, in that order. Without an explicit file the user and
// system locations are tried
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".vote-inspector", "vote-inspector.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/vote-inspector/vote-inspector.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// Validate checks the values that cannot be corrected later
func (c *Config) Validate() error {
	if _, err := c.NetworkID(); err != nil {
		return err
	}
	if c.Port > 65535 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid port: %d", max(c.Port, c.MetricsPort))
	}
	if _, err := c.AllowList(); err != nil {
		return err
	}
	return nil
}

// NetworkID maps the network name to the address network ID
func (c *Config) NetworkID() (uint, error) {
	switch strings.ToLower(c.Network) {
	case "mainnet":
		return ledger.AddressNetworkMainnet, nil
	case "preprod", "preview", "testnet":
		return ledger.AddressNetworkTestnet, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidNetwork, c.Network)
	}
}

// AllowList parses the committee credential allow-list
func (c *Config) AllowList() (committee.AllowList, error) {
	return committee.ParseAllowList(c.ICCAllowList)
}

// Committee returns the committee member registry, using the built-in
// members when none are configured
func (c *Config) Committee() *committee.Registry {
	return committee.NewRegistry(c.Members)
}

// ListenAddress returns the API listen address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}
