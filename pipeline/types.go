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
	"encoding/json"

	"github.com/blinklabs-io/vote-inspector/ledger"
)

// Vote choice display labels
const (
	VoteLabelConstitutional   = "Constitutional"
	VoteLabelUnconstitutional = "Unconstitutional"
	VoteLabelAbstain          = "Abstain"
)

// VoteChoiceLabel maps a raw vote to its display label
func VoteChoiceLabel(vote uint8) string {
	switch vote {
	case ledger.GovVoteYes:
		return VoteLabelConstitutional
	case ledger.GovVoteNo:
		return VoteLabelUnconstitutional
	default:
		return VoteLabelAbstain
	}
}

// TxValidationState holds the transaction level validation flags
type TxValidationState struct {
	IsPartOfSigners       bool `json:"isPartOfSigners"`
	HasNoCertificates     bool `json:"hasNoCertificates"`
	IsSameNetwork         bool `json:"isSameNetwork"`
	IsInOutputPlutusData  bool `json:"isInOutputPlutusData"`
	IsUnsignedTransaction bool `json:"isUnsignedTransaction"`
}

// AllTrue reports whether every flag is set
func (s TxValidationState) AllTrue() bool {
	return s.IsPartOfSigners &&
		s.HasNoCertificates &&
		s.IsSameNetwork &&
		s.IsInOutputPlutusData &&
		s.IsUnsignedTransaction
}

// VoteValidationState holds the validation flags of a single vote. Optional
// checks are nil when their context was not supplied
type VoteValidationState struct {
	IsMetadataAnchorValid bool  `json:"isMetadataAnchorValid"`
	IsSelectedMemberVoter *bool `json:"isSelectedMemberVoter,omitempty"`
	HasICCCredentials     *bool `json:"hasICCCredentials,omitempty"`
}

// AllTrue reports whether every populated flag is set
func (s VoteValidationState) AllTrue() bool {
	if !s.IsMetadataAnchorValid {
		return false
	}
	if s.IsSelectedMemberVoter != nil && !*s.IsSelectedMemberVoter {
		return false
	}
	if s.HasICCCredentials != nil && !*s.HasICCCredentials {
		return false
	}
	return true
}

// VoteTransactionDetails is the display record of one extracted vote
type VoteTransactionDetails struct {
	GovActionID        string `json:"govActionID"`
	VoteChoice         string `json:"voteChoice"`
	ExplorerLink       string `json:"explorerLink"`
	MetadataAnchorURL  string `json:"metadataAnchorURL"`
	MetadataAnchorHash string `json:"metadataAnchorHash"`
	ResetAckState      bool   `json:"resetAckState"`
}

// TransactionKind classifies an inspected transaction. It is implemented by
// VoteKind and HierarchyKind
type TransactionKind interface {
	Name() string
	isTransactionKind()
}

const (
	KindNameVote      = "vote"
	KindNameHierarchy = "hierarchy"
	KindNameUnknown   = "unknown"
)

// VoteKind is a transaction carrying voting procedures. Votes and
// Validations are parallel and in wire order
type VoteKind struct {
	Votes       []VoteTransactionDetails
	Validations []VoteValidationState
}

func (VoteKind) Name() string { return KindNameVote }

func (VoteKind) isTransactionKind() {}

// HierarchyKind is any transaction without voting procedures
type HierarchyKind struct{}

func (HierarchyKind) Name() string { return KindNameHierarchy }

func (HierarchyKind) isTransactionKind() {}

// KindName returns the name of kind, or "unknown" for nil
func KindName(kind TransactionKind) string {
	if kind == nil {
		return KindNameUnknown
	}
	return kind.Name()
}

// Result is the outcome of processing a transaction body
type Result struct {
	Base      TxValidationState
	Kind      TransactionKind
	NetworkID uint
}

// State is the full inspection state of a session
type State struct {
	TxHex           string
	Transaction     *ledger.Transaction
	Validation      TxValidationState
	Kind            TransactionKind
	NetworkID       uint
	StakeCredential string
	Message         string
	Signature       string
	Acknowledged    bool
	Connected       bool
}

// IsVote reports whether the transaction was classified as a vote
func (s State) IsVote() bool {
	_, ok := s.Kind.(VoteKind)
	return ok
}

func (s State) Votes() []VoteTransactionDetails {
	if kind, ok := s.Kind.(VoteKind); ok {
		return kind.Votes
	}
	return nil
}

func (s State) VoteValidations() []VoteValidationState {
	if kind, ok := s.Kind.(VoteKind); ok {
		return kind.Validations
	}
	return nil
}

func (s State) MarshalJSON() ([]byte, error) {
	tmpObj := struct {
		TxHex                  string                   `json:"unsignedTransactionHex"`
		TxHash                 string                   `json:"txHash,omitempty"`
		Kind                   string                   `json:"kind"`
		IsVoteTransaction      bool                     `json:"isVoteTransaction"`
		NetworkID              uint                     `json:"networkId"`
		Validation             TxValidationState        `json:"txValidationState"`
		VoteTransactionDetails []VoteTransactionDetails `json:"voteTransactionDetails"`
		VoteValidationState    []VoteValidationState    `json:"voteValidationState"`
		StakeCredential        string                   `json:"stakeCredentialHash"`
		Message                string                   `json:"message"`
		Signature              string                   `json:"signature"`
		Acknowledged           bool                     `json:"acknowledgedTx"`
		Connected              bool                     `json:"connected"`
	}{
		TxHex:                  s.TxHex,
		Kind:                   KindName(s.Kind),
		IsVoteTransaction:      s.IsVote(),
		NetworkID:              s.NetworkID,
		Validation:             s.Validation,
		VoteTransactionDetails: s.Votes(),
		VoteValidationState:    s.VoteValidations(),
		StakeCredential:        s.StakeCredential,
		Message:                s.Message,
		Signature:              s.Signature,
		Acknowledged:           s.Acknowledged,
		Connected:              s.Connected,
	}
	if s.Transaction != nil {
		tmpObj.TxHash = s.Transaction.Hash().String()
	}
	if tmpObj.VoteTransactionDetails == nil {
		tmpObj.VoteTransactionDetails = []VoteTransactionDetails{}
	}
	if tmpObj.VoteValidationState == nil {
		tmpObj.VoteValidationState = []VoteValidationState{}
	}
	return json.Marshal(&tmpObj)
}
