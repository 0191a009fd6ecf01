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
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
)

// VerifyVKeySignature verifies an ed25519 signature against the provided public key and message.
// The public key must also decode to a valid curve point.
func VerifyVKeySignature(pubKey, sig, msg []byte) error {
	if len(pubKey) != ed25519.PublicKeySize {
		return InvalidSignatureError{
			Reason: fmt.Sprintf("invalid public key size: %d", len(pubKey)),
		}
	}
	if len(sig) != ed25519.SignatureSize {
		return InvalidSignatureError{
			Reason: fmt.Sprintf("invalid signature size: %d", len(sig)),
		}
	}
	if _, err := new(edwards25519.Point).SetBytes(pubKey); err != nil {
		return InvalidSignatureError{
			Reason: fmt.Sprintf("invalid public key: %s", err),
		}
	}
	if !ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig) {
		return InvalidSignatureError{Reason: "signature verification failed"}
	}
	return nil
}

// ValidateVKeyWitnesses verifies that every vkey witness in the transaction
// signs the transaction body hash
func ValidateVKeyWitnesses(tx *Transaction) error {
	txHash := tx.Hash()
	for _, vw := range tx.WitnessSet.Vkey() {
		if err := VerifyVKeySignature(vw.Vkey, vw.Signature, txHash[:]); err != nil {
			return fmt.Errorf(
				"witness for key %s: %w",
				vw.KeyHash().String(),
				err,
			)
		}
	}
	return nil
}
