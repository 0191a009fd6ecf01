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

package test_ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/blinklabs-io/vote-inspector/cbor"
	"github.com/blinklabs-io/vote-inspector/internal/test"
	"github.com/blinklabs-io/vote-inspector/ledger"
)

// OutputFixture describes a transaction output for a TxFixture
type OutputFixture struct {
	Address     ledger.Address
	Amount      uint64
	InlineDatum []byte
	DatumHash   *ledger.Blake2b256
	// Legacy outputs use the pre-Alonzo array shape
	Legacy bool
}

// TxFixture builds Conway transaction CBOR for tests. Zero values produce a
// minimal valid transaction with a single input and no outputs
type TxFixture struct {
	Inputs           []ledger.TransactionInput
	Outputs          []OutputFixture
	Fee              uint64
	Certificates     []any
	WithCertificates bool
	RequiredSigners  []ledger.Blake2b224
	VotingProcedures *ledger.VotingProcedures
	Witnesses        []ledger.VkeyWitness
	// Body keys that the decoder does not know about
	ExtraBodyKeys map[uint]any
	// Tag set fields with 258
	UseSetTag bool
}

// BodyCbor returns the encoded transaction body
func (f TxFixture) BodyCbor() []byte {
	body := map[uint]any{}
	for k, v := range f.ExtraBodyKeys {
		body[k] = v
	}
	inputs := f.Inputs
	if inputs == nil {
		inputs = []ledger.TransactionInput{
			{TxId: ledger.NewBlake2b256(test.RepeatByte(0x01, 32))},
		}
	}
	body[ledger.TxBodyKeyInputs] = f.maybeSet(inputs)
	outputs := make([]cbor.RawMessage, 0, len(f.Outputs))
	for _, output := range f.Outputs {
		outputs = append(outputs, output.cbor())
	}
	body[ledger.TxBodyKeyOutputs] = outputs
	body[ledger.TxBodyKeyFee] = f.Fee
	if f.WithCertificates || f.Certificates != nil {
		certs := f.Certificates
		if certs == nil {
			certs = []any{}
		}
		body[ledger.TxBodyKeyCertificates] = certs
	}
	if f.RequiredSigners != nil {
		body[ledger.TxBodyKeyRequiredSigners] = f.maybeSet(f.RequiredSigners)
	}
	if f.VotingProcedures != nil {
		body[ledger.TxBodyKeyVotingProcedures] = f.VotingProcedures
	}
	return mustEncode(body)
}

// Cbor returns the encoded transaction
func (f TxFixture) Cbor() []byte {
	witnessSet := map[uint]any{}
	if len(f.Witnesses) > 0 {
		witnessSet[ledger.WitnessSetKeyVkey] = f.Witnesses
	}
	tx := []any{
		cbor.RawMessage(f.BodyCbor()),
		witnessSet,
		true,
		nil,
	}
	return mustEncode(tx)
}

// Hex returns the encoded transaction as hex
func (f TxFixture) Hex() string {
	return hex.EncodeToString(f.Cbor())
}

// BodyHash returns the Blake2b-256 hash of the encoded body
func (f TxFixture) BodyHash() ledger.Blake2b256 {
	return ledger.Blake2b256Hash(f.BodyCbor())
}

func (f TxFixture) maybeSet(items any) any {
	if f.UseSetTag {
		return cbor.Tag{Number: cbor.CborTagSet, Content: items}
	}
	return items
}

func (o OutputFixture) cbor() cbor.RawMessage {
	addrBytes := o.Address.Bytes()
	if o.Legacy {
		items := []any{addrBytes, o.Amount}
		if o.DatumHash != nil {
			items = append(items, o.DatumHash)
		}
		return mustEncode(items)
	}
	output := map[uint]any{
		0: addrBytes,
		1: o.Amount,
	}
	switch {
	case o.InlineDatum != nil:
		output[2] = []any{
			ledger.DatumOptionTypeData,
			cbor.WrappedCbor(o.InlineDatum),
		}
	case o.DatumHash != nil:
		output[2] = []any{ledger.DatumOptionTypeHash, o.DatumHash}
	}
	return mustEncode(output)
}

// BaseAddress builds a key/key base address from a payment and stake hash
func BaseAddress(
	networkId uint8,
	paymentHash ledger.Blake2b224,
	stakeHash ledger.Blake2b224,
) ledger.Address {
	addr, err := ledger.NewAddressFromParts(
		ledger.AddressTypeKeyKey,
		networkId,
		paymentHash.Bytes(),
		stakeHash.Bytes(),
	)
	if err != nil {
		panic(fmt.Sprintf("error building address: %s", err))
	}
	return addr
}

// NewKey returns a deterministic ed25519 key built from a repeated seed byte
func NewKey(seed byte) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(test.RepeatByte(seed, ed25519.SeedSize))
}

// KeyHash returns the Blake2b-224 hash of the public part of key
func KeyHash(key ed25519.PrivateKey) ledger.Blake2b224 {
	return ledger.Blake2b224Hash(key.Public().(ed25519.PublicKey))
}

// SignWitness signs the body hash of the fixture with key
func (f TxFixture) SignWitness(key ed25519.PrivateKey) ledger.VkeyWitness {
	bodyHash := f.BodyHash()
	return ledger.NewVkeyWitness(
		key.Public().(ed25519.PublicKey),
		ed25519.Sign(key, bodyHash[:]),
	)
}

// SingleVote builds voting procedures holding one voter with one vote
func SingleVote(
	voter ledger.Voter,
	actionId ledger.GovActionId,
	vote uint8,
	anchor *ledger.GovAnchor,
) *ledger.VotingProcedures {
	return &ledger.VotingProcedures{
		{
			Voter: voter,
			Votes: []ledger.ActionVote{
				{
					ActionId: actionId,
					Procedure: ledger.VotingProcedure{
						Vote:   vote,
						Anchor: anchor,
					},
				},
			},
		},
	}
}

func mustEncode(v any) []byte {
	ret, err := cbor.Encode(v)
	if err != nil {
		panic(fmt.Sprintf("error encoding CBOR: %s", err))
	}
	return ret
}
