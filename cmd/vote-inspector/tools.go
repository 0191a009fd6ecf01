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
	"strconv"

	"github.com/blinklabs-io/vote-inspector/govaction"
	"github.com/blinklabs-io/vote-inspector/internal/config"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/signing"
	"github.com/spf13/cobra"
)

func govIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gov-id",
		Short: "Convert governance action IDs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "encode <tx-hash> <index>",
			Short: "Build a CIP-129 governance action ID",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := strconv.ParseUint(args[1], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid index: %w", err)
				}
				id, err := govaction.FromHex(args[0], uint32(index))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "decode <gov-action-id>",
			Short: "Show the transaction hash and index of a governance action ID",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				actionId, err := govaction.Decode(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s#%d\n",
					actionId.TransactionId.String(),
					actionId.GovActionIdx,
				)
				cfg := config.FromContext(cmd.Context())
				if cfg == nil {
					return nil
				}
				if networkId, err := cfg.NetworkID(); err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), govaction.ExplorerURL(args[0], networkId))
				}
				return nil
			},
		},
	)
	return cmd
}

func verifyWitnessCommand() *cobra.Command {
	var signedHex, unsignedHex, stakeCredential string
	cmd := &cobra.Command{
		Use:   "verify-witness",
		Short: "Check the first vkey witness of a signed transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stakeCred, err := ledger.NewBlake2b224FromHex(stakeCredential)
			if err != nil {
				return fmt.Errorf("invalid stake credential: %w", err)
			}
			witness, err := signing.VerifyWitness(signedHex, unsignedHex, stakeCred)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(
				map[string]string{
					"voterKeyHash": witness.VoterKeyHash.String(),
					"signature":    witness.Signature,
					"witness":      witness.Hex,
				},
				"",
				"  ",
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&signedHex, "signed", "", "signed transaction hex")
	cmd.Flags().StringVar(&unsignedHex, "unsigned", "", "unsigned transaction hex")
	cmd.Flags().StringVar(&stakeCredential, "stake-credential", "", "expected stake credential hash (hex)")
	_ = cmd.MarkFlagRequired("signed")
	_ = cmd.MarkFlagRequired("unsigned")
	_ = cmd.MarkFlagRequired("stake-credential")
	return cmd
}

func membersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List the known constitutional committee members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			for _, m := range cfg.Committee().Members() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-32s %s\n", m.ID, m.Name, m.HotCredential)
			}
			return nil
		},
	}
}
