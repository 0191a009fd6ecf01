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

package ledger

import (
	"fmt"

	"github.com/blinklabs-io/vote-inspector/cbor"
)

const (
	VoterTypeConstitutionalCommitteeHotKeyHash    uint8 = 0
	VoterTypeConstitutionalCommitteeHotScriptHash uint8 = 1
	VoterTypeDRepKeyHash                          uint8 = 2
	VoterTypeDRepScriptHash                       uint8 = 3
	VoterTypeStakingPoolKeyHash                   uint8 = 4
)

type Voter struct {
	cbor.StructAsArray
	Type uint8
	Hash Blake2b224
}

// IsScript reports whether the voter credential is a script hash
func (v Voter) IsScript() bool {
	return v.Type == VoterTypeConstitutionalCommitteeHotScriptHash ||
		v.Type == VoterTypeDRepScriptHash
}

// IsCommittee reports whether the voter is a constitutional committee hot credential
func (v Voter) IsCommittee() bool {
	return v.Type == VoterTypeConstitutionalCommitteeHotKeyHash ||
		v.Type == VoterTypeConstitutionalCommitteeHotScriptHash
}

const (
	GovVoteNo      uint8 = 0
	GovVoteYes     uint8 = 1
	GovVoteAbstain uint8 = 2
)

type VotingProcedure struct {
	cbor.StructAsArray
	Vote   uint8
	Anchor *GovAnchor
}

type GovAnchor struct {
	cbor.StructAsArray
	Url      string
	DataHash Blake2b256
}

type GovActionId struct {
	cbor.StructAsArray
	TransactionId Blake2b256
	GovActionIdx  uint32
}

func (id GovActionId) String() string {
	return fmt.Sprintf("%s#%d", id.TransactionId.String(), id.GovActionIdx)
}

// ActionVote is a single vote on one governance action
type ActionVote struct {
	ActionId  GovActionId
	Procedure VotingProcedure
}

// VoterVotes groups the votes cast by one voter
type VoterVotes struct {
	Voter Voter
	Votes []ActionVote
}

// VotingProcedures holds the voting procedures from a transaction body. Both
// the voters and each voter's votes are kept in the order they appear on the wire
type VotingProcedures []VoterVotes

func (v *VotingProcedures) UnmarshalCBOR(data []byte) error {
	voterEntries, err := cbor.DecodeMapEntries(data)
	if err != nil {
		return fmt.Errorf("decode voting procedures: %w", err)
	}
	ret := make(VotingProcedures, 0, len(voterEntries))
	for _, voterEntry := range voterEntries {
		var tmpVoterVotes VoterVotes
		if err := cbor.DecodeExact(voterEntry.Key, &tmpVoterVotes.Voter); err != nil {
			return fmt.Errorf("decode voter: %w", err)
		}
		voteEntries, err := cbor.DecodeMapEntries(voterEntry.Value)
		if err != nil {
			return fmt.Errorf("decode votes: %w", err)
		}
		for _, voteEntry := range voteEntries {
			var tmpVote ActionVote
			if err := cbor.DecodeExact(voteEntry.Key, &tmpVote.ActionId); err != nil {
				return fmt.Errorf("decode governance action ID: %w", err)
			}
			if err := cbor.DecodeExact(voteEntry.Value, &tmpVote.Procedure); err != nil {
				return fmt.Errorf("decode voting procedure: %w", err)
			}
			tmpVoterVotes.Votes = append(tmpVoterVotes.Votes, tmpVote)
		}
		ret = append(ret, tmpVoterVotes)
	}
	*v = ret
	return nil
}

func (v VotingProcedures) MarshalCBOR() ([]byte, error) {
	ret := cbor.AppendMapHeader(nil, len(v))
	for _, voterVotes := range v {
		voterCbor, err := cbor.Encode(&voterVotes.Voter)
		if err != nil {
			return nil, err
		}
		ret = append(ret, voterCbor...)
		ret = cbor.AppendMapHeader(ret, len(voterVotes.Votes))
		for _, vote := range voterVotes.Votes {
			idCbor, err := cbor.Encode(&vote.ActionId)
			if err != nil {
				return nil, err
			}
			procCbor, err := cbor.Encode(&vote.Procedure)
			if err != nil {
				return nil, err
			}
			ret = append(ret, idCbor...)
			ret = append(ret, procCbor...)
		}
	}
	return ret, nil
}

// VoteCount returns the total number of votes across all voters
func (v VotingProcedures) VoteCount() int {
	var ret int
	for _, voterVotes := range v {
		ret += len(voterVotes.Votes)
	}
	return ret
}
