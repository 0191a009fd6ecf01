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

	"github.com/blinklabs-io/vote-inspector/cbor"
)

const (
	// WitnessSetKeyVkey is the witness set map key holding vkey witnesses
	WitnessSetKeyVkey = 0

	// An encoded 32-byte vkey carries a 2-byte bytestring header
	vkeyCborHeaderSize = 2
)

type VkeyWitness struct {
	cbor.StructAsArray
	cbor.DecodeStoreCbor
	Vkey      []byte
	Signature []byte
}

func NewVkeyWitness(vkey []byte, signature []byte) VkeyWitness {
	return VkeyWitness{
		Vkey:      vkey,
		Signature: signature,
	}
}

func (w *VkeyWitness) UnmarshalCBOR(cborData []byte) error {
	type tVkeyWitness VkeyWitness
	var tmp tVkeyWitness
	if err := cbor.DecodeGeneric(cborData, &tmp); err != nil {
		return err
	}
	*w = VkeyWitness(tmp)
	w.SetCbor(cborData)
	return nil
}

func (w VkeyWitness) MarshalCBOR() ([]byte, error) {
	if w.Cbor() != nil {
		return w.Cbor(), nil
	}
	return cbor.Encode([]any{w.Vkey, w.Signature})
}

// PublicKey returns the raw ed25519 public key by stripping the bytestring
// header from the encoded vkey
func (w VkeyWitness) PublicKey() ([]byte, error) {
	encoded, err := cbor.Encode(w.Vkey)
	if err != nil {
		return nil, err
	}
	if len(encoded) != vkeyCborHeaderSize+ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid vkey size: %d", len(w.Vkey))
	}
	return encoded[vkeyCborHeaderSize:], nil
}

// KeyHash returns the Blake2b-224 hash of the witness vkey
func (w VkeyWitness) KeyHash() Blake2b224 {
	return Blake2b224Hash(w.Vkey)
}

// WitnessSet is the transaction witness set map. Only vkey witnesses are
// decoded, other entries are kept verbatim
type WitnessSet struct {
	cbor.DecodeStoreCbor
	VkeyWitnesses []VkeyWitness
	entries       []witnessSetEntry
}

type witnessSetEntry struct {
	key   uint64
	value cbor.RawMessage
}

func (w *WitnessSet) UnmarshalCBOR(cborData []byte) error {
	w.SetCbor(cborData)
	rawEntries, err := cbor.DecodeMapEntries(cborData)
	if err != nil {
		return fmt.Errorf("decode witness set: %w", err)
	}
	w.entries = make([]witnessSetEntry, 0, len(rawEntries))
	w.VkeyWitnesses = nil
	for _, rawEntry := range rawEntries {
		var key uint64
		if err := cbor.DecodeExact(rawEntry.Key, &key); err != nil {
			return fmt.Errorf("invalid witness set key: %w", err)
		}
		if key == WitnessSetKeyVkey {
			// Sets may carry tag 258, which is dropped for slice destinations
			if err := cbor.DecodeExact(rawEntry.Value, &w.VkeyWitnesses); err != nil {
				return fmt.Errorf("decode vkey witnesses: %w", err)
			}
		}
		w.entries = append(
			w.entries,
			witnessSetEntry{key: key, value: rawEntry.Value},
		)
	}
	return nil
}

func (w WitnessSet) MarshalCBOR() ([]byte, error) {
	if w.Cbor() != nil {
		return w.Cbor(), nil
	}
	return w.encode()
}

func (w WitnessSet) encode() ([]byte, error) {
	ret := cbor.AppendMapHeader(nil, len(w.entries))
	for _, entry := range w.entries {
		keyCbor, err := cbor.Encode(entry.key)
		if err != nil {
			return nil, err
		}
		ret = append(ret, keyCbor...)
		ret = append(ret, entry.value...)
	}
	return ret, nil
}

// Len returns the number of entries in the witness set map
func (w WitnessSet) Len() int {
	return len(w.entries)
}

func (w WitnessSet) Vkey() []VkeyWitness {
	return w.VkeyWitnesses
}

// WithVkeyWitnesses returns a copy of the witness set with the provided vkey
// witnesses appended to any existing ones. Other entries are preserved as is
func (w WitnessSet) WithVkeyWitnesses(witnesses ...VkeyWitness) (WitnessSet, error) {
	allWitnesses := make([]VkeyWitness, 0, len(w.VkeyWitnesses)+len(witnesses))
	allWitnesses = append(allWitnesses, w.VkeyWitnesses...)
	allWitnesses = append(allWitnesses, witnesses...)
	vkeyCbor := cbor.AppendArrayHeader(nil, len(allWitnesses))
	for _, witness := range allWitnesses {
		witnessCbor, err := witness.MarshalCBOR()
		if err != nil {
			return WitnessSet{}, err
		}
		vkeyCbor = append(vkeyCbor, witnessCbor...)
	}
	ret := WitnessSet{
		VkeyWitnesses: allWitnesses,
		entries: []witnessSetEntry{
			{key: WitnessSetKeyVkey, value: vkeyCbor},
		},
	}
	for _, entry := range w.entries {
		if entry.key != WitnessSetKeyVkey {
			ret.entries = append(ret.entries, entry)
		}
	}
	return ret, nil
}
