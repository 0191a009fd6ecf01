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

// Package validate implements the independent validation predicates that run
// over a decoded transaction body and its wallet context.
//
// All predicates are total for a successfully decoded body. A false result is
// data for the signing gate, not an error.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/vote-inspector/committee"
	"github.com/blinklabs-io/vote-inspector/ledger"
)

// TestnetAddressPrefix marks an address as belonging to network 0
const TestnetAddressPrefix = "addr_test1"

var (
	ErrNoOutputs = errors.New("transaction has no outputs")
	ErrNoVotes   = errors.New("transaction has no votes")
)

// Predicates runs the validation predicates, logging through Logger
type Predicates struct {
	Logger *slog.Logger
}

// New returns a Predicates that logs to logger, or to slog.Default() if
// logger is nil
func New(logger *slog.Logger) *Predicates {
	return &Predicates{Logger: logger}
}

func (p *Predicates) logger() *slog.Logger {
	if p == nil || p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// IsPartOfSigners reports whether the serialized required signers contain the
// stake credential hash
func (p *Predicates) IsPartOfSigners(
	body *ledger.TransactionBody,
	stakeCred string,
) bool {
	signers := body.RequiredSigners()
	if len(signers) == 0 {
		p.logger().Debug("no required signers in the transaction")
		return false
	}
	if stakeCred == "" {
		return false
	}
	signersJson, err := json.Marshal(signers)
	if err != nil {
		p.logger().Debug("failed to serialize required signers", "error", err)
		return false
	}
	if strings.Contains(string(signersJson), strings.ToLower(stakeCred)) {
		p.logger().Debug(
			"credential is a required signer",
			"required_signers", string(signersJson),
		)
		return true
	}
	p.logger().Debug("credential is not a required signer")
	return false
}

func (p *Predicates) HasCertificates(body *ledger.TransactionBody) bool {
	ret := body.HasCertificates()
	if !ret {
		p.logger().Debug("no certificates in the transaction")
	}
	return ret
}

func (p *Predicates) HasNoCertificates(body *ledger.TransactionBody) bool {
	return !p.HasCertificates(body)
}

// NetworkIDFromAddress classifies a bech32 address string by its prefix
func NetworkIDFromAddress(addr string) uint {
	if strings.HasPrefix(addr, TestnetAddressPrefix) {
		return ledger.AddressNetworkTestnet
	}
	return ledger.AddressNetworkMainnet
}

// TransactionNetworkID derives the network of a transaction from the address
// of its first output
func TransactionNetworkID(body *ledger.TransactionBody) (uint, error) {
	outputs := body.Outputs()
	if len(outputs) == 0 {
		return 0, ErrNoOutputs
	}
	return NetworkIDFromAddress(outputs[0].Address().String()), nil
}

func (p *Predicates) IsSameNetwork(
	body *ledger.TransactionBody,
	walletNetworkId uint,
) bool {
	txNetworkId, err := TransactionNetworkID(body)
	if err != nil {
		p.logger().Debug("cannot determine transaction network", "error", err)
		return false
	}
	p.logger().Debug(
		"comparing networks",
		"transaction_network", txNetworkId,
		"wallet_network", walletNetworkId,
	)
	return txNetworkId == walletNetworkId
}

// IsSignerInPlutusData reports whether the stake credential hash appears in
// the display form of any output datum
func (p *Predicates) IsSignerInPlutusData(
	body *ledger.TransactionBody,
	stakeCred string,
) bool {
	if stakeCred == "" {
		return false
	}
	stakeCred = strings.ToLower(stakeCred)
	for idx, output := range body.Outputs() {
		var display string
		if datum := output.Datum(); datum != nil {
			display = datum.Display()
		} else if datumHash := output.DatumHash(); datumHash != nil {
			display = datumHash.String()
		} else {
			continue
		}
		if strings.Contains(display, stakeCred) {
			p.logger().Debug("credential found in output datum", "output", idx)
			return true
		}
	}
	p.logger().Debug("credential not found in any output datum")
	return false
}

// IsUnsignedTransaction reports whether the witness set is empty
func (p *Predicates) IsUnsignedTransaction(tx *ledger.Transaction) bool {
	return tx.WitnessSet.Len() == 0
}

// HasOneVoteOnTransaction counts the votes of the first voting procedure.
// A single vote is true, several votes are false and no votes is ErrNoVotes
func (p *Predicates) HasOneVoteOnTransaction(
	body *ledger.TransactionBody,
) (bool, error) {
	procs := body.VotingProcedures()
	if procs == nil || len(*procs) == 0 {
		return false, ErrNoVotes
	}
	voteCount := len((*procs)[0].Votes)
	switch voteCount {
	case 0:
		return false, ErrNoVotes
	case 1:
		return true, nil
	}
	p.logger().Debug(
		fmt.Sprintf("signing more than one vote, number of votes: %d", voteCount),
	)
	return false, nil
}

// HasValidICCCredentials reports whether the first voter is the committee
// script credential allowed for the wallet network
func (p *Predicates) HasValidICCCredentials(
	body *ledger.TransactionBody,
	walletNetworkId uint,
	allowList committee.AllowList,
) bool {
	procs := body.VotingProcedures()
	if procs == nil || len(*procs) == 0 {
		p.logger().Debug("no voting procedures in the transaction")
		return false
	}
	voter := (*procs)[0].Voter
	if !voter.IsCommittee() || !voter.IsScript() {
		p.logger().Debug(
			"voter is not a committee script credential",
			"voter_type", voter.Type,
		)
		return false
	}
	ret := allowList.Allows(walletNetworkId, voter.Hash.String())
	p.logger().Debug(
		"checked committee credential",
		"credential", voter.Hash.String(),
		"network", walletNetworkId,
		"allowed", ret,
	)
	return ret
}

// IsSelectedMemberVoter reports whether any voter with votes matches the hot
// credential of the selected committee member
func (p *Predicates) IsSelectedMemberVoter(
	procs *ledger.VotingProcedures,
	hotCredential string,
) bool {
	if procs == nil {
		return false
	}
	cred, err := committee.DecodeCredential(hotCredential)
	if err != nil {
		p.logger().Debug(
			"invalid selected member credential",
			"credential", hotCredential,
			"error", err,
		)
		return false
	}
	for _, voterVotes := range *procs {
		if len(voterVotes.Votes) == 0 {
			continue
		}
		if voterVotes.Voter.Hash == cred.Hash {
			return true
		}
	}
	return false
}

var defaultPredicates = &Predicates{}

func IsPartOfSigners(body *ledger.TransactionBody, stakeCred string) bool {
	return defaultPredicates.IsPartOfSigners(body, stakeCred)
}

func HasCertificates(body *ledger.TransactionBody) bool {
	return defaultPredicates.HasCertificates(body)
}

func HasNoCertificates(body *ledger.TransactionBody) bool {
	return defaultPredicates.HasNoCertificates(body)
}

func IsSameNetwork(body *ledger.TransactionBody, walletNetworkId uint) bool {
	return defaultPredicates.IsSameNetwork(body, walletNetworkId)
}

func IsSignerInPlutusData(body *ledger.TransactionBody, stakeCred string) bool {
	return defaultPredicates.IsSignerInPlutusData(body, stakeCred)
}

func IsUnsignedTransaction(tx *ledger.Transaction) bool {
	return defaultPredicates.IsUnsignedTransaction(tx)
}

func HasOneVoteOnTransaction(body *ledger.TransactionBody) (bool, error) {
	return defaultPredicates.HasOneVoteOnTransaction(body)
}

func HasValidICCCredentials(
	body *ledger.TransactionBody,
	walletNetworkId uint,
	allowList committee.AllowList,
) bool {
	return defaultPredicates.HasValidICCCredentials(body, walletNetworkId, allowList)
}

func IsSelectedMemberVoter(procs *ledger.VotingProcedures, hotCredential string) bool {
	return defaultPredicates.IsSelectedMemberVoter(procs, hotCredential)
}
