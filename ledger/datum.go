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
	"encoding/hex"
	"encoding/json"

	"github.com/blinklabs-io/plutigo/data"
	"github.com/blinklabs-io/vote-inspector/cbor"
)

type DatumHash = Blake2b256

// Datum represents a Plutus datum attached inline to an output
type Datum struct {
	cbor.DecodeStoreCbor
	Data data.PlutusData `json:"-"`
}

func (d *Datum) UnmarshalCBOR(cborData []byte) error {
	d.SetCbor(cborData)
	tmpData, err := data.Decode(cborData)
	if err != nil {
		return err
	}
	d.Data = tmpData
	return nil
}

func (d *Datum) MarshalCBOR() ([]byte, error) {
	if d.Cbor() != nil {
		return d.Cbor(), nil
	}
	return data.Encode(d.Data)
}

func (d *Datum) Hash() DatumHash {
	return Blake2b256Hash(d.Cbor())
}

// Display renders the datum in the detailed JSON schema, with bytestrings as
// lowercase hex. The raw CBOR hex is returned if the datum cannot be rendered
func (d *Datum) Display() string {
	ret, err := d.detailedJSON()
	if err != nil {
		return hex.EncodeToString(d.Cbor())
	}
	return string(ret)
}

func (d *Datum) detailedJSON() ([]byte, error) {
	var tmpValue cbor.Value
	if _, err := cbor.Decode(d.Cbor(), &tmpValue); err != nil {
		return nil, err
	}
	return json.Marshal(tmpValue)
}

func (d *Datum) MarshalJSON() ([]byte, error) {
	ret, err := d.detailedJSON()
	if err != nil {
		return json.Marshal(hex.EncodeToString(d.Cbor()))
	}
	return ret, nil
}
