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
	"errors"
	"fmt"

	"github.com/blinklabs-io/vote-inspector/anchor"
	"github.com/blinklabs-io/vote-inspector/govaction"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/validate"
	"github.com/blinklabs-io/vote-inspector/wallet"
	"golang.org/x/sync/errgroup"
)

var ErrNilTransaction = errors.New("transaction is nil")

// ProcessTransactionBody classifies a decoded transaction, extracts the votes
// of its first voting procedure and checks their metadata anchors
func ProcessTransactionBody(
	ctx context.Context,
	body *ledger.TransactionBody,
	tx *ledger.Transaction,
	opts ProcessOptions,
) (*Result, error) {
	result, err := classify(body, tx, opts)
	if err != nil {
		return nil, err
	}
	if err := checkAnchors(ctx, result, opts, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// classify builds the base validation state and the transaction kind. Vote
// anchors are not checked yet
func classify(
	body *ledger.TransactionBody,
	tx *ledger.Transaction,
	opts ProcessOptions,
) (*Result, error) {
	if body == nil || tx == nil {
		return nil, ErrNilTransaction
	}
	predicates := opts.Predicates
	networkId, err := validate.TransactionNetworkID(body)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Base: TxValidationState{
			HasNoCertificates:     predicates.HasNoCertificates(body),
			IsUnsignedTransaction: predicates.IsUnsignedTransaction(tx),
		},
		NetworkID: networkId,
	}
	procs := body.VotingProcedures()
	if procs == nil {
		result.Kind = HierarchyKind{}
		return result, nil
	}
	// Several votes are accepted, none is a structural error
	if _, err := predicates.HasOneVoteOnTransaction(body); err != nil {
		return nil, err
	}
	kind := VoteKind{
		Votes:       []VoteTransactionDetails{},
		Validations: []VoteValidationState{},
	}
	var selectedMember, iccCredentials *bool
	if opts.SelectedMember != "" {
		tmpVal := predicates.IsSelectedMemberVoter(procs, opts.SelectedMember)
		selectedMember = &tmpVal
	}
	// Checked against the transaction network. The wallet stage repeats the
	// check for a wallet on another network
	if len(opts.AllowList) > 0 {
		tmpVal := predicates.HasValidICCCredentials(body, networkId, opts.AllowList)
		iccCredentials = &tmpVal
	}
	// Only the first voting procedure is inspected
	for _, vote := range (*procs)[0].Votes {
		govActionId, err := govaction.FromActionId(vote.ActionId)
		if err != nil {
			return nil, fmt.Errorf("encode governance action ID: %w", err)
		}
		anchorURL, anchorHash := anchor.Unavailable, anchor.Unavailable
		if voteAnchor := vote.Procedure.Anchor; voteAnchor != nil {
			anchorURL = voteAnchor.Url
			anchorHash = voteAnchor.DataHash.String()
		}
		kind.Votes = append(kind.Votes, VoteTransactionDetails{
			GovActionID:        govActionId,
			VoteChoice:         VoteChoiceLabel(vote.Procedure.Vote),
			ExplorerLink:       govaction.ExplorerURL(govActionId, networkId),
			MetadataAnchorURL:  anchorURL,
			MetadataAnchorHash: anchorHash,
		})
		kind.Validations = append(kind.Validations, VoteValidationState{
			IsSelectedMemberVoter: cloneBool(selectedMember),
			HasICCCredentials:     cloneBool(iccCredentials),
		})
	}
	result.Kind = kind
	return result, nil
}

// checkAnchors runs the metadata anchor checks of a vote result
// concurrently. Each result is written to the index of its vote
func checkAnchors(
	ctx context.Context,
	result *Result,
	opts ProcessOptions,
	metrics *PipelineMetrics,
) error {
	kind, ok := result.Kind.(VoteKind)
	if !ok || len(kind.Votes) == 0 {
		return nil
	}
	checker := opts.AnchorChecker
	if checker == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if opts.AnchorWorkers > 0 {
		g.SetLimit(opts.AnchorWorkers)
	}
	for idx := range kind.Votes {
		g.Go(func() error {
			valid := checker.Check(
				gctx,
				kind.Votes[idx].MetadataAnchorURL,
				kind.Votes[idx].MetadataAnchorHash,
			)
			kind.Validations[idx].IsMetadataAnchorValid = valid
			if metrics != nil {
				metrics.RecordAnchorCheck(valid)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// A cancelled context turns every check false, which must not be taken
	// as a result
	return ctx.Err()
}

// ProcessWalletValidation adds the wallet-dependent flags to base. With a
// nil wallet the flags stay false and the returned credential is zero
func ProcessWalletValidation(
	ctx context.Context,
	base TxValidationState,
	body *ledger.TransactionBody,
	w wallet.Wallet,
	predicates *validate.Predicates,
) (TxValidationState, ledger.Blake2b224, error) {
	ret := base
	ret.IsPartOfSigners = false
	ret.IsSameNetwork = false
	ret.IsInOutputPlutusData = false
	if w == nil {
		return ret, ledger.Blake2b224{}, nil
	}
	networkId, err := w.NetworkID(ctx)
	if err != nil {
		return base, ledger.Blake2b224{}, fmt.Errorf("get wallet network: %w", err)
	}
	changeAddress, err := w.ChangeAddress(ctx)
	if err != nil {
		return base, ledger.Blake2b224{}, fmt.Errorf("get wallet change address: %w", err)
	}
	addr, err := ledger.NewAddress(changeAddress)
	if err != nil {
		return base, ledger.Blake2b224{}, fmt.Errorf("decode wallet change address: %w", err)
	}
	var stakeCred ledger.Blake2b224
	var stakeCredHex string
	if addr.HasStakeCredential() {
		stakeCred = addr.StakeKeyHash()
		stakeCredHex = stakeCred.String()
	}
	ret.IsPartOfSigners = predicates.IsPartOfSigners(body, stakeCredHex)
	ret.IsSameNetwork = predicates.IsSameNetwork(body, networkId)
	ret.IsInOutputPlutusData = predicates.IsSignerInPlutusData(body, stakeCredHex)
	return ret, stakeCred, nil
}

func cloneBool(val *bool) *bool {
	if val == nil {
		return nil
	}
	ret := *val
	return &ret
}
