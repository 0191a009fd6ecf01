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
	"log/slog"

	"github.com/blinklabs-io/vote-inspector/internal/config"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/pipeline"
	"github.com/blinklabs-io/vote-inspector/signing"
	"github.com/spf13/cobra"
)

func signCommand() *cobra.Command {
	var source txSource
	var walletOpts walletFlags
	var member string
	var acknowledged bool
	var outDir string
	cmd := &cobra.Command{
		Use:   "sign [tx-hex]",
		Short: "Inspect a transaction, sign it with a stake key and verify the witness",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			if walletOpts.stakeKeyFile == "" {
				return errors.New("--stake-key-file is required to sign")
			}
			txHex, err := source.read(cmd, args)
			if err != nil {
				return err
			}
			logger := slog.Default()
			inspector, err := newInspector(cfg, logger, &walletOpts, member)
			if err != nil {
				return err
			}
			if _, err := inspector.Check(cmd.Context(), txHex); err != nil {
				return err
			}
			inspector.Acknowledge(acknowledged)
			state := inspector.Snapshot()
			var stakeCred ledger.Blake2b224
			if state.StakeCredential != "" {
				stakeCred, err = ledger.NewBlake2b224FromHex(state.StakeCredential)
				if err != nil {
					return err
				}
			}
			machine := signing.NewMachine(
				inspector.Wallet,
				signing.WithLogger(logger),
			)
			witness, err := machine.Sign(
				cmd.Context(),
				signing.GateFromState(state),
				state.TxHex,
				stakeCred,
			)
			if err != nil {
				var failed *signing.FailedError
				if errors.As(err, &failed) {
					return errors.New(failed.Message)
				}
				return err
			}
			inspector.SetSignature(witness.Hex)
			artifact := signing.NewArtifact(
				artifactID(state),
				witness.VoterKeyHash.String(),
				witness.Hex,
			)
			if outDir == "" {
				data, err := artifact.MarshalIndent()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			path, err := artifact.WriteFile(outDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	source.addFlags(cmd)
	walletOpts.addFlags(cmd)
	cmd.Flags().StringVar(&member, "member", "", "selected committee member (hot credential, id or name)")
	cmd.Flags().BoolVar(&acknowledged, "ack", false, "acknowledge the transaction details")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "write the .witness file to this directory instead of stdout")
	return cmd
}

// artifactID names the witness after the first voted governance action, or
// the transaction hash for other transactions
func artifactID(state pipeline.State) string {
	if votes := state.Votes(); len(votes) > 0 {
		return votes[0].GovActionID
	}
	if state.Transaction != nil {
		return state.Transaction.Hash().String()
	}
	return ""
}
