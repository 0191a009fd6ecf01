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

package ledger_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/blinklabs-io/vote-inspector/cbor"
	"github.com/blinklabs-io/vote-inspector/internal/test"
	test_ledger "github.com/blinklabs-io/vote-inspector/internal/test/ledger"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testStakeHash   = ledger.NewBlake2b224(test.RepeatByte(0xbb, 28))
	testPaymentHash = ledger.NewBlake2b224(test.RepeatByte(0xaa, 28))
	testScriptHash  = ledger.NewBlake2b224(test.RepeatByte(0xcc, 28))
	testActionTxId  = ledger.NewBlake2b256(test.RepeatByte(0xdd, 32))
)

func voteFixture() test_ledger.TxFixture {
	return test_ledger.TxFixture{
		Outputs: []test_ledger.OutputFixture{
			{
				Address: test_ledger.BaseAddress(
					ledger.AddressNetworkTestnet,
					testPaymentHash,
					testStakeHash,
				),
				Amount: 5_000_000,
			},
		},
		Fee:             170_000,
		RequiredSigners: []ledger.Blake2b224{testStakeHash},
		VotingProcedures: test_ledger.SingleVote(
			ledger.Voter{
				Type: ledger.VoterTypeConstitutionalCommitteeHotScriptHash,
				Hash: testScriptHash,
			},
			ledger.GovActionId{TransactionId: testActionTxId, GovActionIdx: 3},
			ledger.GovVoteYes,
			&ledger.GovAnchor{
				Url:      "https://example.org/a.json",
				DataHash: ledger.Blake2b256Hash([]byte("rationale")),
			},
		),
	}
}

func TestNewTransactionFromHexVote(t *testing.T) {
	fixture := voteFixture()
	tx, err := ledger.NewTransactionFromHex(fixture.Hex())
	require.NoError(t, err)
	body, err := tx.RequireBody()
	require.NoError(t, err)
	require.Len(t, body.Outputs(), 1)
	assert.Equal(t, uint64(5_000_000), body.Outputs()[0].Amount())
	assert.True(
		t,
		strings.HasPrefix(body.Outputs()[0].Address().String(), "addr_test1"),
	)
	assert.Equal(t, uint64(170_000), body.Fee())
	assert.Equal(t, []ledger.Blake2b224{testStakeHash}, body.RequiredSigners())
	assert.False(t, body.HasCertificates())
	require.NotNil(t, body.VotingProcedures())
	procs := *body.VotingProcedures()
	require.Len(t, procs, 1)
	assert.Equal(t, testScriptHash, procs[0].Voter.Hash)
	assert.True(t, procs[0].Voter.IsScript())
	assert.True(t, procs[0].Voter.IsCommittee())
	require.Len(t, procs[0].Votes, 1)
	vote := procs[0].Votes[0]
	assert.Equal(t, testActionTxId, vote.ActionId.TransactionId)
	assert.Equal(t, uint32(3), vote.ActionId.GovActionIdx)
	assert.Equal(t, ledger.GovVoteYes, vote.Procedure.Vote)
	require.NotNil(t, vote.Procedure.Anchor)
	assert.Equal(t, "https://example.org/a.json", vote.Procedure.Anchor.Url)
	assert.Equal(t, fixture.BodyHash(), tx.Hash())
	assert.Equal(t, 0, tx.WitnessSet.Len())
	assert.True(t, tx.TxIsValid)
	assert.Nil(t, tx.TxMetadata)
	assert.Equal(t, fixture.Hex(), tx.Hex())
}

func TestDecodeTransactionHexTotal(t *testing.T) {
	valid := voteFixture().Cbor()
	inputs := []string{
		"",
		"   ",
		"zz",
		"0",
		"00",
		"84",
		"f6",
		"a0",
		// 3 element array
		"83a0a0f5",
		// 5 element array
		"85a0a0f5f6f6",
		// Body is not a map
		"8401a0f5f6",
		// Truncated valid transaction
		hex.EncodeToString(valid[:len(valid)-3]),
		// Trailing bytes
		hex.EncodeToString(append(bytes.Clone(valid), 0x00)),
		// Huge declared length
		"9bffffffffffffffff",
		strings.Repeat("9f", 1000),
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			tx := ledger.DecodeTransactionHex(input, slog.Default())
			assert.Nil(t, tx, input)
		})
	}
	assert.NotNil(t, ledger.DecodeTransactionHex(hex.EncodeToString(valid), nil))
}

func TestNewTransactionFromHexErrors(t *testing.T) {
	_, err := ledger.NewTransactionFromHex("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrEmptyTransaction))
	assert.True(t, errors.Is(err, ledger.ErrTransactionDecode))
	_, err = ledger.NewTransactionFromHex("not hex")
	require.Error(t, err)
	var decodeErr ledger.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, err.Error(), "transaction decode error")
}

func TestRequireBodyNoOutputs(t *testing.T) {
	fixture := test_ledger.TxFixture{}
	tx, err := ledger.NewTransactionFromCbor(fixture.Cbor())
	require.NoError(t, err)
	_, err = tx.RequireBody()
	assert.ErrorIs(t, err, ledger.ErrTransactionBodyNull)
	assert.Equal(t, "Transaction body is null", err.Error())
}

func TestTransactionBodyUnknownKeys(t *testing.T) {
	fixture := voteFixture()
	fixture.ExtraBodyKeys = map[uint]any{
		7:  test.RepeatByte(0x11, 32),
		8:  uint64(12345),
		21: uint64(1),
	}
	tx, err := ledger.NewTransactionFromCbor(fixture.Cbor())
	require.NoError(t, err)
	assert.Equal(t, fixture.BodyHash(), tx.Hash())
}

func TestTransactionBodySetTag(t *testing.T) {
	fixture := voteFixture()
	fixture.UseSetTag = true
	tx, err := ledger.NewTransactionFromCbor(fixture.Cbor())
	require.NoError(t, err)
	assert.Equal(t, []ledger.Blake2b224{testStakeHash}, tx.Body.RequiredSigners())
	assert.Len(t, tx.Body.Inputs(), 1)
}

func TestTransactionBodyEmptyCertificates(t *testing.T) {
	fixture := voteFixture()
	fixture.WithCertificates = true
	tx, err := ledger.NewTransactionFromCbor(fixture.Cbor())
	require.NoError(t, err)
	assert.True(t, tx.Body.HasCertificates())
	assert.Empty(t, tx.Body.TxCertificates)
}

func TestVotingProceduresWireOrder(t *testing.T) {
	// Voters and actions deliberately out of canonical key order
	procs := ledger.VotingProcedures{
		{
			Voter: ledger.Voter{Type: ledger.VoterTypeDRepKeyHash, Hash: testStakeHash},
			Votes: []ledger.ActionVote{
				{
					ActionId:  ledger.GovActionId{TransactionId: testActionTxId, GovActionIdx: 9},
					Procedure: ledger.VotingProcedure{Vote: ledger.GovVoteNo},
				},
				{
					ActionId:  ledger.GovActionId{TransactionId: testActionTxId, GovActionIdx: 1},
					Procedure: ledger.VotingProcedure{Vote: ledger.GovVoteAbstain},
				},
			},
		},
		{
			Voter: ledger.Voter{
				Type: ledger.VoterTypeConstitutionalCommitteeHotKeyHash,
				Hash: testPaymentHash,
			},
			Votes: []ledger.ActionVote{
				{
					ActionId:  ledger.GovActionId{TransactionId: testActionTxId, GovActionIdx: 0},
					Procedure: ledger.VotingProcedure{Vote: ledger.GovVoteYes},
				},
			},
		},
	}
	encoded, err := cbor.Encode(procs)
	require.NoError(t, err)
	var decoded ledger.VotingProcedures
	_, err = cbor.Decode(encoded, &decoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, ledger.VoterTypeDRepKeyHash, decoded[0].Voter.Type)
	require.Len(t, decoded[0].Votes, 2)
	assert.Equal(t, uint32(9), decoded[0].Votes[0].ActionId.GovActionIdx)
	assert.Equal(t, uint32(1), decoded[0].Votes[1].ActionId.GovActionIdx)
	assert.Nil(t, decoded[0].Votes[0].Procedure.Anchor)
	assert.Equal(t, 3, decoded.VoteCount())
	reencoded, err := cbor.Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestComputeHash(t *testing.T) {
	fixture := voteFixture()
	assert.Equal(t, fixture.BodyHash().String(), ledger.ComputeHash(fixture.Hex()))
	assert.Equal(t, "", ledger.ComputeHash("deadbeef"))
	assert.Equal(t, "", ledger.ComputeHash(""))
}

func TestAddVkeyWitnesses(t *testing.T) {
	fixture := voteFixture()
	tx, err := ledger.NewTransactionFromCbor(fixture.Cbor())
	require.NoError(t, err)
	key := test_ledger.NewKey(0x42)
	witness := fixture.SignWitness(key)
	signedCbor, err := tx.AddVkeyWitnesses(witness)
	require.NoError(t, err)
	signedTx, err := ledger.NewTransactionFromCbor(signedCbor)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), signedTx.Hash())
	assert.Equal(t, 1, signedTx.WitnessSet.Len())
	require.Len(t, signedTx.WitnessSet.Vkey(), 1)
	assert.Equal(t, test_ledger.KeyHash(key), signedTx.WitnessSet.Vkey()[0].KeyHash())
	require.NoError(t, ledger.ValidateVKeyWitnesses(signedTx))
}

func TestValidateVKeyWitnessesWrongMessage(t *testing.T) {
	fixture := voteFixture()
	key := test_ledger.NewKey(0x42)
	other := voteFixture()
	other.Fee = 1
	fixture.Witnesses = []ledger.VkeyWitness{other.SignWitness(key)}
	tx, err := ledger.NewTransactionFromCbor(fixture.Cbor())
	require.NoError(t, err)
	err = ledger.ValidateVKeyWitnesses(tx)
	require.Error(t, err)
	var sigErr ledger.InvalidSignatureError
	assert.True(t, errors.As(err, &sigErr))
}
