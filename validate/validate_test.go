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

package validate_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/blinklabs-io/vote-inspector/committee"
	"github.com/blinklabs-io/vote-inspector/internal/test"
	test_ledger "github.com/blinklabs-io/vote-inspector/internal/test/ledger"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testStakeHash   = ledger.NewBlake2b224(test.RepeatByte(0xbb, 28))
	testPaymentHash = ledger.NewBlake2b224(test.RepeatByte(0xaa, 28))
	testScriptHash  = ledger.NewBlake2b224(test.RepeatByte(0xcc, 28))
	testActionTxId  = ledger.NewBlake2b256(test.RepeatByte(0xdd, 32))
)

func testVoter() ledger.Voter {
	return ledger.Voter{
		Type: ledger.VoterTypeConstitutionalCommitteeHotScriptHash,
		Hash: testScriptHash,
	}
}

func testVote(idx uint32) ledger.ActionVote {
	return ledger.ActionVote{
		ActionId: ledger.GovActionId{
			TransactionId: testActionTxId,
			GovActionIdx:  idx,
		},
		Procedure: ledger.VotingProcedure{Vote: ledger.GovVoteYes},
	}
}

func baseFixture(networkId uint8) test_ledger.TxFixture {
	return test_ledger.TxFixture{
		Outputs: []test_ledger.OutputFixture{
			{
				Address: test_ledger.BaseAddress(
					networkId,
					testPaymentHash,
					testStakeHash,
				),
				Amount: 2_000_000,
			},
		},
		RequiredSigners: []ledger.Blake2b224{testStakeHash},
		VotingProcedures: test_ledger.SingleVote(
			testVoter(),
			ledger.GovActionId{TransactionId: testActionTxId},
			ledger.GovVoteYes,
			nil,
		),
	}
}

func decode(t *testing.T, fixture test_ledger.TxFixture) *ledger.Transaction {
	t.Helper()
	tx, err := ledger.NewTransactionFromCbor(fixture.Cbor())
	require.NoError(t, err)
	return tx
}

func TestIsPartOfSigners(t *testing.T) {
	tx := decode(t, baseFixture(0))
	assert.True(t, validate.IsPartOfSigners(&tx.Body, testStakeHash.String()))
	assert.True(
		t,
		validate.IsPartOfSigners(&tx.Body, strings.ToUpper(testStakeHash.String())),
	)
	assert.False(t, validate.IsPartOfSigners(&tx.Body, testPaymentHash.String()))
	assert.False(t, validate.IsPartOfSigners(&tx.Body, ""))

	fixture := baseFixture(0)
	fixture.RequiredSigners = nil
	tx = decode(t, fixture)
	assert.False(t, validate.IsPartOfSigners(&tx.Body, testStakeHash.String()))

	fixture.RequiredSigners = []ledger.Blake2b224{}
	tx = decode(t, fixture)
	assert.False(t, validate.IsPartOfSigners(&tx.Body, testStakeHash.String()))

	fixture.RequiredSigners = []ledger.Blake2b224{testPaymentHash, testStakeHash}
	fixture.UseSetTag = true
	tx = decode(t, fixture)
	assert.True(t, validate.IsPartOfSigners(&tx.Body, testStakeHash.String()))
}

func TestCertificates(t *testing.T) {
	tx := decode(t, baseFixture(0))
	assert.False(t, validate.HasCertificates(&tx.Body))
	assert.True(t, validate.HasNoCertificates(&tx.Body))

	fixture := baseFixture(0)
	fixture.WithCertificates = true
	tx = decode(t, fixture)
	assert.True(t, validate.HasCertificates(&tx.Body))
	assert.False(t, validate.HasNoCertificates(&tx.Body))
}

func TestNetworkIDFromAddress(t *testing.T) {
	testDefs := []struct {
		addr     string
		expected uint
	}{
		{"addr_test1", 0},
		{"addr_test1qqqqqq", 0},
		{"addr_test", 1},
		{"addr1qqqqqq", 1},
		{"Addr_test1qq", 1},
		{"stake_test1uq", 1},
		{"", 1},
	}
	for _, testDef := range testDefs {
		assert.Equal(
			t,
			testDef.expected,
			validate.NetworkIDFromAddress(testDef.addr),
			testDef.addr,
		)
	}
}

func TestIsSameNetwork(t *testing.T) {
	testnetTx := decode(t, baseFixture(ledger.AddressNetworkTestnet))
	mainnetTx := decode(t, baseFixture(ledger.AddressNetworkMainnet))
	assert.True(t, validate.IsSameNetwork(&testnetTx.Body, 0))
	assert.False(t, validate.IsSameNetwork(&testnetTx.Body, 1))
	assert.True(t, validate.IsSameNetwork(&mainnetTx.Body, 1))
	assert.False(t, validate.IsSameNetwork(&mainnetTx.Body, 0))

	networkId, err := validate.TransactionNetworkID(&mainnetTx.Body)
	require.NoError(t, err)
	assert.Equal(t, uint(1), networkId)

	fixture := baseFixture(0)
	fixture.Outputs = nil
	tx := decode(t, fixture)
	_, err = validate.TransactionNetworkID(&tx.Body)
	assert.ErrorIs(t, err, validate.ErrNoOutputs)
	assert.False(t, validate.IsSameNetwork(&tx.Body, 0))
}

func TestIsSignerInPlutusData(t *testing.T) {
	// Constructor 0 holding the stake hash
	datum := append([]byte{0xd8, 0x79, 0x9f, 0x58, 0x1c}, testStakeHash.Bytes()...)
	datum = append(datum, 0xff)

	fixture := baseFixture(0)
	tx := decode(t, fixture)
	assert.False(t, validate.IsSignerInPlutusData(&tx.Body, testStakeHash.String()))

	fixture.Outputs = append(fixture.Outputs, test_ledger.OutputFixture{
		Address:     fixture.Outputs[0].Address,
		Amount:      1_000_000,
		InlineDatum: datum,
	})
	tx = decode(t, fixture)
	assert.True(t, validate.IsSignerInPlutusData(&tx.Body, testStakeHash.String()))
	assert.False(t, validate.IsSignerInPlutusData(&tx.Body, testScriptHash.String()))
	assert.False(t, validate.IsSignerInPlutusData(&tx.Body, ""))

	// Datum hashes are matched on their hex form
	datumHash := ledger.NewBlake2b256(
		append(testStakeHash.Bytes(), test.RepeatByte(0x00, 4)...),
	)
	fixture = baseFixture(0)
	fixture.Outputs[0].DatumHash = &datumHash
	tx = decode(t, fixture)
	assert.True(t, validate.IsSignerInPlutusData(&tx.Body, testStakeHash.String()))
}

func TestIsUnsignedTransaction(t *testing.T) {
	fixture := baseFixture(0)
	assert.True(t, validate.IsUnsignedTransaction(decode(t, fixture)))

	key := test_ledger.NewKey(0x01)
	fixture.Witnesses = []ledger.VkeyWitness{fixture.SignWitness(key)}
	assert.False(t, validate.IsUnsignedTransaction(decode(t, fixture)))
}

func TestHasOneVoteOnTransaction(t *testing.T) {
	fixture := baseFixture(0)
	ok, err := validate.HasOneVoteOnTransaction(&decode(t, fixture).Body)
	require.NoError(t, err)
	assert.True(t, ok)

	fixture.VotingProcedures = &ledger.VotingProcedures{
		{Voter: testVoter(), Votes: []ledger.ActionVote{testVote(0), testVote(1)}},
	}
	ok, err = validate.HasOneVoteOnTransaction(&decode(t, fixture).Body)
	require.NoError(t, err)
	assert.False(t, ok)

	fixture.VotingProcedures = &ledger.VotingProcedures{{Voter: testVoter()}}
	_, err = validate.HasOneVoteOnTransaction(&decode(t, fixture).Body)
	assert.ErrorIs(t, err, validate.ErrNoVotes)

	fixture.VotingProcedures = nil
	_, err = validate.HasOneVoteOnTransaction(&decode(t, fixture).Body)
	assert.ErrorIs(t, err, validate.ErrNoVotes)
}

func TestHasValidICCCredentials(t *testing.T) {
	otherHash := ledger.NewBlake2b224(test.RepeatByte(0x11, 28))
	allowList := committee.AllowList{
		0: testScriptHash.String(),
		1: otherHash.String(),
	}
	tx := decode(t, baseFixture(0))
	assert.True(t, validate.HasValidICCCredentials(&tx.Body, 0, allowList))
	assert.False(t, validate.HasValidICCCredentials(&tx.Body, 1, allowList))
	assert.False(t, validate.HasValidICCCredentials(&tx.Body, 0, nil))

	// Key hash committee voters are not script credentials
	fixture := baseFixture(0)
	fixture.VotingProcedures = test_ledger.SingleVote(
		ledger.Voter{
			Type: ledger.VoterTypeConstitutionalCommitteeHotKeyHash,
			Hash: testScriptHash,
		},
		ledger.GovActionId{TransactionId: testActionTxId},
		ledger.GovVoteNo,
		nil,
	)
	tx = decode(t, fixture)
	assert.False(t, validate.HasValidICCCredentials(&tx.Body, 0, allowList))

	fixture.VotingProcedures = nil
	tx = decode(t, fixture)
	assert.False(t, validate.HasValidICCCredentials(&tx.Body, 0, allowList))
}

func TestIsSelectedMemberVoter(t *testing.T) {
	tx := decode(t, baseFixture(0))
	procs := tx.Body.VotingProcedures()
	assert.True(
		t,
		validate.IsSelectedMemberVoter(
			procs,
			committee.EncodeHotCredential(testScriptHash, true),
		),
	)
	assert.True(t, validate.IsSelectedMemberVoter(procs, testScriptHash.String()))
	assert.False(t, validate.IsSelectedMemberVoter(procs, testStakeHash.String()))
	assert.False(t, validate.IsSelectedMemberVoter(procs, "cc_hot1aaaa"))
	assert.False(t, validate.IsSelectedMemberVoter(nil, testScriptHash.String()))

	// A later voter can match
	multi := ledger.VotingProcedures{
		{Voter: ledger.Voter{Hash: testStakeHash}, Votes: []ledger.ActionVote{testVote(0)}},
		{Voter: testVoter(), Votes: []ledger.ActionVote{testVote(1)}},
	}
	assert.True(t, validate.IsSelectedMemberVoter(&multi, testScriptHash.String()))
	// Voters without votes do not count
	multi[1].Votes = nil
	assert.False(t, validate.IsSelectedMemberVoter(&multi, testScriptHash.String()))
}

func TestPredicatesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	p := validate.New(logger)
	fixture := baseFixture(0)
	fixture.RequiredSigners = nil
	tx := decode(t, fixture)
	assert.False(t, p.IsPartOfSigners(&tx.Body, testStakeHash.String()))
	assert.Contains(t, buf.String(), "no required signers")
}
