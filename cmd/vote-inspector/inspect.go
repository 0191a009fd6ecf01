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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/vote-inspector/internal/config"
	"github.com/blinklabs-io/vote-inspector/pipeline"
	"github.com/blinklabs-io/vote-inspector/signing"
	"github.com/spf13/cobra"
)

func inspectCommand() *cobra.Command {
	var source txSource
	var walletOpts walletFlags
	var member string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "inspect [tx-hex]",
		Short: "Decode an unsigned transaction and run the validation checks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			txHex, err := source.read(cmd, args)
			if err != nil {
				return err
			}
			inspector, err := newInspector(cfg, slog.Default(), &walletOpts, member)
			if err != nil {
				return err
			}
			state, err := inspector.Check(cmd.Context(), txHex)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeStateJSON(cmd.OutOrStdout(), state)
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
	source.addFlags(cmd)
	walletOpts.addFlags(cmd)
	cmd.Flags().StringVar(&member, "member", "", "selected committee member (hot credential, id or name)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the inspection state as JSON")
	return cmd
}

// newInspector builds an inspector with the wallet from walletOpts connected
func newInspector(
	cfg *config.Config,
	logger *slog.Logger,
	walletOpts *walletFlags,
	member string,
) (*pipeline.Inspector, error) {
	if member == "" {
		member = cfg.SelectedMember
	}
	opts, err := pipelineOptions(cfg, logger, nil, member)
	if err != nil {
		return nil, err
	}
	networkId, err := cfg.NetworkID()
	if err != nil {
		return nil, err
	}
	w, err := walletOpts.load(networkId)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	inspector := pipeline.NewInspector(opts...)
	if w != nil {
		inspector.SetWallet(w)
	}
	return inspector, nil
}

func writeStateJSON(w io.Writer, state pipeline.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printState(w io.Writer, state pipeline.State) {
	if state.Transaction != nil {
		fmt.Fprintf(w, "Transaction hash:  %s\n", state.Transaction.Hash().String())
	}
	fmt.Fprintf(w, "Kind:              %s\n", pipeline.KindName(state.Kind))
	fmt.Fprintf(w, "Network:           %d\n", state.NetworkID)
	if state.StakeCredential != "" {
		fmt.Fprintf(w, "Stake credential:  %s\n", state.StakeCredential)
	}
	fmt.Fprintln(w, "Transaction checks:")
	v := state.Validation
	printCheck(w, "wallet is a required signer", v.IsPartOfSigners)
	printCheck(w, "no certificates", v.HasNoCertificates)
	printCheck(w, "wallet on transaction network", v.IsSameNetwork)
	printCheck(w, "wallet in output plutus data", v.IsInOutputPlutusData)
	printCheck(w, "transaction is unsigned", v.IsUnsignedTransaction)
	validations := state.VoteValidations()
	for idx, vote := range state.Votes() {
		fmt.Fprintf(w, "Vote %d: %s\n", idx, vote.VoteChoice)
		fmt.Fprintf(w, "  governance action: %s\n", vote.GovActionID)
		fmt.Fprintf(w, "  explorer:          %s\n", vote.ExplorerLink)
		fmt.Fprintf(w, "  anchor:            %s\n", vote.MetadataAnchorURL)
		fmt.Fprintf(w, "  anchor hash:       %s\n", vote.MetadataAnchorHash)
		if idx >= len(validations) {
			continue
		}
		printCheck(w, "metadata anchor matches", validations[idx].IsMetadataAnchorValid)
		if val := validations[idx].IsSelectedMemberVoter; val != nil {
			printCheck(w, "selected member is the voter", *val)
		}
		if val := validations[idx].HasICCCredentials; val != nil {
			printCheck(w, "committee credential allowed", *val)
		}
	}
	gate := signing.GateFromState(state)
	// Acknowledgment is given on signing
	gate.Acknowledged = true
	if warning := gate.Warning(); warning != "" {
		fmt.Fprintf(w, "Signing blocked:   %s\n", warning)
	} else {
		fmt.Fprintln(w, "Ready to sign")
	}
}

func printCheck(w io.Writer, name string, ok bool) {
	mark := "FAIL"
	if ok {
		mark = "ok"
	}
	fmt.Fprintf(w, "  [%-4s] %s\n", mark, name)
}
