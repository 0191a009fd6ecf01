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

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/vote-inspector/anchor"
	"github.com/blinklabs-io/vote-inspector/internal/config"
	"github.com/blinklabs-io/vote-inspector/pipeline"
	"github.com/blinklabs-io/vote-inspector/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Transactions are read from a file, stdin ("-") or the first argument
type txSource struct {
	file string
}

func (s *txSource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "tx-file", "f", "", "read the transaction hex from a file, or - for stdin")
}

func (s *txSource) read(cmd *cobra.Command, args []string) (string, error) {
	var data []byte
	var err error
	switch {
	case s.file == "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	case s.file != "":
		data, err = os.ReadFile(s.file)
	case len(args) > 0:
		data = []byte(args[0])
	default:
		return "", errors.New("no transaction provided")
	}
	if err != nil {
		return "", fmt.Errorf("read transaction: %w", err)
	}
	txHex := strings.TrimSpace(string(data))
	if txHex == "" {
		return "", errors.New("no transaction provided")
	}
	return txHex, nil
}

// walletFlags selects the wallet context: a stake signing key, which can also
// sign, or a bare stake credential
type walletFlags struct {
	stakeKeyFile    string
	paymentKeyFile  string
	stakeCredential string
}

func (f *walletFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.stakeKeyFile, "stake-key-file", "", "cardano-cli stake signing key file")
	cmd.Flags().StringVar(&f.paymentKeyFile, "payment-key-file", "", "cardano-cli payment signing key file (optional)")
	cmd.Flags().StringVar(&f.stakeCredential, "stake-credential", "", "stake credential hash (hex) for a read-only wallet")
}

// load returns the configured wallet, or nil when no wallet flag is set
func (f *walletFlags) load(networkId uint) (wallet.Wallet, error) {
	switch {
	case f.stakeKeyFile != "":
		return wallet.LoadKeyWallet(networkId, f.stakeKeyFile, f.paymentKeyFile)
	case f.stakeCredential != "":
		return wallet.NewWatchWalletFromHex(networkId, f.stakeCredential)
	}
	return nil, nil
}

// pipelineOptions builds the pipeline configuration shared by the commands
func pipelineOptions(
	cfg *config.Config,
	logger *slog.Logger,
	registry prometheus.Registerer,
	selectedMember string,
) ([]pipeline.PipelineOption, error) {
	allowList, err := cfg.AllowList()
	if err != nil {
		return nil, err
	}
	gateways := anchor.NewGatewayCache(
		cfg.IpfsGateways,
		anchor.WithGatewayLogger(logger),
		anchor.WithGatewayTimeout(cfg.HTTPTimeout),
	)
	checker := anchor.NewChecker(
		anchor.WithGatewayCache(gateways),
		anchor.WithLogger(logger),
		anchor.WithTimeout(cfg.HTTPTimeout),
	)
	if selectedMember != "" {
		if m, ok := cfg.Committee().ByID(selectedMember); ok {
			selectedMember = m.HotCredential
		} else if m, ok := cfg.Committee().ByName(selectedMember); ok {
			selectedMember = m.HotCredential
		}
	}
	return []pipeline.PipelineOption{
		pipeline.WithLogger(logger),
		pipeline.WithAnchorChecker(checker),
		pipeline.WithAllowList(allowList),
		pipeline.WithSelectedMember(selectedMember),
		pipeline.WithPromRegistry(registry),
	}, nil
}
