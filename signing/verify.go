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

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/blinklabs-io/vote-inspector/ledger"
)

var (
	ErrUnexpectedVkey   = errors.New("Wallet returned unexpected VKey")     //nolint:staticcheck
	ErrInvalidSignature = errors.New("Wallet created an invalid signature") //nolint:staticcheck
	ErrUnsignedDecode   = errors.New("unsigned transaction could not be decoded")
)

// Witness is a verified vkey witness returned by a wallet
type Witness struct {
	// Hex is the CBOR hex of the [vkey, signature] witness
	Hex          string
	Signature    string
	VoterKeyHash ledger.Blake2b224
}

// VerifyWitness checks the first vkey witness of signedHex. The witness key
// must hash to expectedCred and its signature must cover the hash of
// unsignedHex.
func VerifyWitness(
	signedHex string,
	unsignedHex string,
	expectedCred ledger.Blake2b224,
) (Witness, error) {
	signedTx, err := ledger.NewTransactionFromHex(signedHex)
	if err != nil {
		return Witness{}, fmt.Errorf("decode signed transaction: %w", err)
	}
	vkeys := signedTx.WitnessSet.Vkey()
	if len(vkeys) == 0 {
		return Witness{}, ledger.ErrNoVkeyWitness
	}
	witness := vkeys[0]
	pubKey, err := witness.PublicKey()
	if err != nil {
		return Witness{}, fmt.Errorf("%w: %w", ErrUnexpectedVkey, err)
	}
	keyHash := ledger.Blake2b224Hash(pubKey)
	if keyHash != expectedCred {
		return Witness{}, fmt.Errorf(
			"%w: got %s, expected %s",
			ErrUnexpectedVkey,
			keyHash.String(),
			expectedCred.String(),
		)
	}
	txHash, err := ledger.NewBlake2b256FromHex(ledger.ComputeHash(unsignedHex))
	if err != nil {
		return Witness{}, ErrUnsignedDecode
	}
	if err := ledger.VerifyVKeySignature(pubKey, witness.Signature, txHash[:]); err != nil {
		return Witness{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	witnessCbor, err := witness.MarshalCBOR()
	if err != nil {
		return Witness{}, err
	}
	return Witness{
		Hex:          hex.EncodeToString(witnessCbor),
		Signature:    hex.EncodeToString(witness.Signature),
		VoterKeyHash: keyHash,
	}, nil
}
