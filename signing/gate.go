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

package signing

import "github.com/blinklabs-io/vote-inspector/pipeline"

// Warnings shown while signing is not possible, in priority order
const (
	WarningConnect     = "Please connect a wallet to be able to sign"
	WarningAcknowledge = "Please acknowledge the transaction details."
	WarningValidation  = "Please resolve all validation issues."
)

// Gate holds everything that decides whether a transaction may be signed
type Gate struct {
	Acknowledged bool
	Connected    bool
	Tx           pipeline.TxValidationState
	IsVote       bool
	Votes        []pipeline.VoteValidationState
}

// GateFromState builds the gate for an inspection session
func GateFromState(state pipeline.State) Gate {
	return Gate{
		Acknowledged: state.Acknowledged,
		Connected:    state.Connected,
		Tx:           state.Validation,
		IsVote:       state.IsVote(),
		Votes:        state.VoteValidations(),
	}
}

// ValidationsPass reports whether every transaction flag holds and, for
// votes, every flag of every vote
func (g Gate) ValidationsPass() bool {
	if !g.Tx.AllTrue() {
		return false
	}
	if !g.IsVote {
		return true
	}
	for _, vote := range g.Votes {
		if !vote.AllTrue() {
			return false
		}
	}
	return true
}

func (g Gate) CanSign() bool {
	return g.Acknowledged && g.Connected && g.ValidationsPass()
}

// Warning returns the most important reason signing is disabled, or an
// empty string when it is enabled
func (g Gate) Warning() string {
	switch {
	case !g.Connected:
		return WarningConnect
	case !g.Acknowledged:
		return WarningAcknowledge
	case !g.ValidationsPass():
		return WarningValidation
	}
	return ""
}
