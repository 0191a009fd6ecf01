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

package signing_test

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/vote-inspector/internal/test"
	test_ledger "github.com/blinklabs-io/vote-inspector/internal/test/ledger"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/pipeline"
	"github.com/blinklabs-io/vote-inspector/signing"
	"github.com/blinklabs-io/vote-inspector/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testStakeKey   = test_ledger.NewKey(0x42)
	testStakeHash  = test_ledger.KeyHash(testStakeKey)
	testOtherKey   = test_ledger.NewKey(0x77)
	testScriptHash = ledger.NewBlake2b224(test.RepeatByte(0xcc, 28))
)

func unsignedFixture() test_ledger.TxFixture {
	return test_ledger.TxFixture{
		Outputs: []test_ledger.OutputFixture{
			{
				Address: test_ledger.BaseAddress(
					0,
					ledger.NewBlake2b224(test.RepeatByte(0xaa, 28)),
					testStakeHash,
				),
				Amount: 2_000_000,
			},
		},
		RequiredSigners: []ledger.Blake2b224{testStakeHash},
		VotingProcedures: test_ledger.SingleVote(
			ledger.Voter{
				Type: ledger.VoterTypeConstitutionalCommitteeHotScriptHash,
				Hash: testScriptHash,
			},
			ledger.GovActionId{TransactionId: ledger.NewBlake2b256(test.RepeatByte(0xdd, 32))},
			ledger.GovVoteYes,
			nil,
		),
	}
}

func signableGate() signing.Gate {
	yes := true
	return signing.Gate{
		Acknowledged: true,
		Connected:    true,
		Tx: pipeline.TxValidationState{
			IsPartOfSigners:       true,
			HasNoCertificates:     true,
			IsSameNetwork:         true,
			IsInOutputPlutusData:  true,
			IsUnsignedTransaction: true,
		},
		IsVote: true,
		Votes: []pipeline.VoteValidationState{
			{
				IsMetadataAnchorValid: true,
				IsSelectedMemberVoter: &yes,
				HasICCCredentials:     &yes,
			},
		},
	}
}

func testWallet(t *testing.T) *wallet.KeyWallet {
	t.Helper()
	w, err := wallet.NewKeyWallet(0, testStakeKey)
	require.NoError(t, err)
	return w
}

// forgingWallet signs with an arbitrary key and can corrupt the signature
type forgingWallet struct {
	*wallet.KeyWallet
	signer  ed25519.PrivateKey
	corrupt bool
}

func (w *forgingWallet) SignTx(ctx context.Context, txHex string, partialSign bool) (string, error) {
	tx, err := ledger.NewTransactionFromHex(txHex)
	if err != nil {
		return "", err
	}
	txHash := tx.Hash()
	sig := ed25519.Sign(w.signer, txHash[:])
	if w.corrupt {
		sig[0] ^= 0xff
	}
	signed, err := tx.AddVkeyWitnesses(
		ledger.NewVkeyWitness(w.signer.Public().(ed25519.PublicKey), sig),
	)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(signed), nil
}

func TestGateConjunction(t *testing.T) {
	gate := signableGate()
	assert.True(t, gate.CanSign())
	assert.Empty(t, gate.Warning())

	no := false
	flips := map[string]func(g *signing.Gate){
		"acknowledged":          func(g *signing.Gate) { g.Acknowledged = false },
		"connected":             func(g *signing.Gate) { g.Connected = false },
		"isPartOfSigners":       func(g *signing.Gate) { g.Tx.IsPartOfSigners = false },
		"hasNoCertificates":     func(g *signing.Gate) { g.Tx.HasNoCertificates = false },
		"isSameNetwork":         func(g *signing.Gate) { g.Tx.IsSameNetwork = false },
		"isInOutputPlutusData":  func(g *signing.Gate) { g.Tx.IsInOutputPlutusData = false },
		"isUnsignedTransaction": func(g *signing.Gate) { g.Tx.IsUnsignedTransaction = false },
		"isMetadataAnchorValid": func(g *signing.Gate) { g.Votes[0].IsMetadataAnchorValid = false },
		"isSelectedMemberVoter": func(g *signing.Gate) { g.Votes[0].IsSelectedMemberVoter = &no },
		"hasICCCredentials":     func(g *signing.Gate) { g.Votes[0].HasICCCredentials = &no },
	}
	for name, flip := range flips {
		t.Run(name, func(t *testing.T) {
			gate := signableGate()
			flip(&gate)
			assert.False(t, gate.CanSign())
			assert.NotEmpty(t, gate.Warning())
		})
	}

	// Vote flags do not matter for other transaction kinds
	gate = signableGate()
	gate.IsVote = false
	gate.Votes[0].IsMetadataAnchorValid = false
	assert.True(t, gate.CanSign())

	// Unset optional flags are not counted
	gate = signableGate()
	gate.Votes[0].IsSelectedMemberVoter = nil
	gate.Votes[0].HasICCCredentials = nil
	assert.True(t, gate.CanSign())
}

func TestGateWarningPriority(t *testing.T) {
	gate := signing.Gate{}
	assert.Equal(t, signing.WarningConnect, gate.Warning())
	gate.Connected = true
	assert.Equal(t, signing.WarningAcknowledge, gate.Warning())
	gate.Acknowledged = true
	assert.Equal(t, signing.WarningValidation, gate.Warning())
}

func TestGateFromState(t *testing.T) {
	gate := signableGate()
	state := pipeline.State{
		Acknowledged: true,
		Connected:    true,
		Validation:   gate.Tx,
		Kind: pipeline.VoteKind{
			Votes:       []pipeline.VoteTransactionDetails{{}},
			Validations: gate.Votes,
		},
	}
	assert.Equal(t, gate, signing.GateFromState(state))

	// A vote with a mismatched anchor stays unsignable
	mismatch := signableGate()
	mismatch.Votes[0].IsMetadataAnchorValid = false
	state.Kind = pipeline.VoteKind{
		Votes:       []pipeline.VoteTransactionDetails{{}},
		Validations: mismatch.Votes,
	}
	fromState := signing.GateFromState(state)
	assert.False(t, fromState.CanSign())
	assert.Equal(t, signing.WarningValidation, fromState.Warning())
}

func TestStateMap(t *testing.T) {
	next, err := signing.DefaultStateMap.Next(signing.StateIdle, signing.EventSign)
	require.NoError(t, err)
	assert.Equal(t, signing.StateSigning, next)

	for _, tc := range []struct {
		state signing.State
		event signing.Event
	}{
		{signing.StateIdle, signing.EventSigned},
		{signing.StateIdle, signing.EventReset},
		{signing.StateSigning, signing.EventSign},
		{signing.StateSuccess, signing.EventSign},
		{signing.StateFailed, signing.EventFail},
	} {
		next, err := signing.DefaultStateMap.Next(tc.state, tc.event)
		assert.ErrorIs(t, err, signing.ErrInvalidTransition)
		assert.Equal(t, tc.state, next)
	}
}

func TestMachineSign(t *testing.T) {
	w := testWallet(t)
	m := signing.NewMachine(func() wallet.Wallet { return w })
	fixture := unsignedFixture()
	witness, err := m.Sign(context.Background(), signableGate(), fixture.Hex(), testStakeHash)
	require.NoError(t, err)
	assert.Equal(t, signing.StateSuccess, m.State())
	assert.Equal(t, testStakeHash, witness.VoterKeyHash)
	stored, ok := m.Witness()
	assert.True(t, ok)
	assert.Equal(t, witness, stored)

	expected := fixture.SignWitness(testStakeKey)
	expectedCbor, err := expected.MarshalCBOR()
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(expectedCbor), witness.Hex)
	assert.Equal(t, hex.EncodeToString(expected.Signature), witness.Signature)

	// The expected credential falls back to the wallet change address
	witness, err = m.Sign(context.Background(), signableGate(), fixture.Hex(), ledger.Blake2b224{})
	require.NoError(t, err)
	assert.Equal(t, testStakeHash, witness.VoterKeyHash)
}

func TestMachineNotSignable(t *testing.T) {
	w := testWallet(t)
	m := signing.NewMachine(func() wallet.Wallet { return w })
	gate := signableGate()
	gate.Acknowledged = false
	_, err := m.Sign(context.Background(), gate, unsignedFixture().Hex(), testStakeHash)
	assert.ErrorIs(t, err, signing.ErrNotSignable)
	assert.Contains(t, err.Error(), signing.WarningAcknowledge)
	assert.Equal(t, signing.StateIdle, m.State())
}

func TestMachineUnexpectedVkey(t *testing.T) {
	w := &forgingWallet{KeyWallet: testWallet(t), signer: testOtherKey}
	m := signing.NewMachine(func() wallet.Wallet { return w })
	_, err := m.Sign(context.Background(), signableGate(), unsignedFixture().Hex(), testStakeHash)
	require.Error(t, err)
	assert.ErrorIs(t, err, signing.ErrUnexpectedVkey)
	assert.Equal(t, signing.StateFailed, m.State())
	failure := m.Failure()
	require.NotNil(t, failure)
	assert.Contains(t, failure.Message, "unexpected VKey")
	assert.Regexp(t, "^"+signing.FailurePrefix, failure.Message)
	_, ok := m.Witness()
	assert.False(t, ok)
}

func TestMachineInvalidSignature(t *testing.T) {
	w := &forgingWallet{KeyWallet: testWallet(t), signer: testStakeKey, corrupt: true}
	m := signing.NewMachine(func() wallet.Wallet { return w })
	_, err := m.Sign(context.Background(), signableGate(), unsignedFixture().Hex(), testStakeHash)
	require.Error(t, err)
	assert.ErrorIs(t, err, signing.ErrInvalidSignature)
	assert.Contains(t, m.Failure().Message, "invalid signature")
	assert.Equal(t, signing.StateFailed, m.State())

	// The next attempt starts over from Idle
	w.corrupt = false
	_, err = m.Sign(context.Background(), signableGate(), unsignedFixture().Hex(), testStakeHash)
	require.NoError(t, err)
	assert.Equal(t, signing.StateSuccess, m.State())
	assert.Nil(t, m.Failure())
}

func TestMachineLatestWallet(t *testing.T) {
	var current wallet.Wallet
	m := signing.NewMachine(func() wallet.Wallet { return current })
	_, err := m.Sign(context.Background(), signableGate(), unsignedFixture().Hex(), testStakeHash)
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
	assert.Equal(t, signing.StateFailed, m.State())

	current = testWallet(t)
	_, err = m.Sign(context.Background(), signableGate(), unsignedFixture().Hex(), testStakeHash)
	require.NoError(t, err)
}

func TestVerifyWitness(t *testing.T) {
	fixture := unsignedFixture()
	_, err := signing.VerifyWitness(fixture.Hex(), fixture.Hex(), testStakeHash)
	assert.ErrorIs(t, err, ledger.ErrNoVkeyWitness)

	signedFixture := fixture
	signedFixture.Witnesses = []ledger.VkeyWitness{fixture.SignWitness(testStakeKey)}
	witness, err := signing.VerifyWitness(signedFixture.Hex(), fixture.Hex(), testStakeHash)
	require.NoError(t, err)
	assert.Equal(t, testStakeHash, witness.VoterKeyHash)

	_, err = signing.VerifyWitness(signedFixture.Hex(), fixture.Hex(), testScriptHash)
	assert.ErrorIs(t, err, signing.ErrUnexpectedVkey)

	// A signature over a different transaction does not verify
	other := unsignedFixture()
	other.Fee = 200_000
	_, err = signing.VerifyWitness(signedFixture.Hex(), other.Hex(), testStakeHash)
	assert.ErrorIs(t, err, signing.ErrInvalidSignature)

	_, err = signing.VerifyWitness("zz", fixture.Hex(), testStakeHash)
	assert.ErrorIs(t, err, ledger.ErrTransactionDecode)

	_, err = signing.VerifyWitness(signedFixture.Hex(), "zz", testStakeHash)
	assert.ErrorIs(t, err, signing.ErrUnsignedDecode)
}

func TestArtifact(t *testing.T) {
	artifact := signing.NewArtifact(
		"gov_action1qwertyuiopasdfghjklzxcvbnm",
		testStakeHash.String(),
		"8258200000",
	)
	assert.Equal(
		t,
		"gov_action1qwertyuiopasd_"+testStakeHash.String()[:8]+".witness",
		artifact.Filename(),
	)
	assert.Equal(t, "short_ab.witness", signing.NewArtifact("short", "ab", "").Filename())

	data, err := artifact.MarshalIndent()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"govActionID\": ")
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, artifact.Witness, decoded["witness"])
	assert.Equal(t, artifact.VoterKeyHash, decoded["voterKeyHash"])

	path, err := artifact.WriteFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, artifact.Filename(), filepath.Base(path))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}
