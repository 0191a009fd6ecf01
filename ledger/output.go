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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/vote-inspector/cbor"
)

const (
	DatumOptionTypeHash = 0
	DatumOptionTypeData = 1
)

type TransactionOutputDatumOption struct {
	hash *Blake2b256
	data *Datum
}

func (d *TransactionOutputDatumOption) UnmarshalCBOR(data []byte) error {
	datumOptionType, err := cbor.DecodeIdFromList(data)
	if err != nil {
		return err
	}
	switch datumOptionType {
	case DatumOptionTypeHash:
		var tmpDatumHash struct {
			cbor.StructAsArray
			Type int
			Hash Blake2b256
		}
		if _, err := cbor.Decode(data, &tmpDatumHash); err != nil {
			return err
		}
		d.hash = &(tmpDatumHash.Hash)
	case DatumOptionTypeData:
		var tmpDatumData struct {
			cbor.StructAsArray
			Type     int
			DataCbor cbor.WrappedCbor
		}
		if _, err := cbor.Decode(data, &tmpDatumData); err != nil {
			return err
		}
		var datumValue Datum
		if _, err := cbor.Decode(tmpDatumData.DataCbor.Bytes(), &datumValue); err != nil {
			return err
		}
		d.data = &datumValue
	default:
		return fmt.Errorf("unsupported datum option type: %d", datumOptionType)
	}
	return nil
}

func (d *TransactionOutputDatumOption) MarshalCBOR() ([]byte, error) {
	var tmpObj []any
	switch {
	case d.hash != nil:
		tmpObj = []any{DatumOptionTypeHash, d.hash}
	case d.data != nil:
		tmpObj = []any{DatumOptionTypeData, cbor.WrappedCbor(d.data.Cbor())}
	default:
		return nil, errors.New("unknown datum option type")
	}
	return cbor.Encode(&tmpObj)
}

// TransactionOutput handles both the legacy array output format and the
// post-Alonzo map format
type TransactionOutput struct {
	cbor.DecodeStoreCbor
	OutputAddress Address
	// Coin or [coin, multiasset]
	OutputAmount cbor.RawMessage
	DatumOption  *TransactionOutputDatumOption
	ScriptRef    *cbor.Tag
	legacyOutput bool
}

func (o *TransactionOutput) UnmarshalCBOR(cborData []byte) error {
	// Save original CBOR
	o.SetCbor(cborData)
	majorType, _ := cbor.MajorType(cborData)
	if majorType == cbor.CborTypeArray {
		return o.unmarshalLegacy(cborData)
	}
	var tmpOutput struct {
		OutputAddress Address                       `cbor:"0,keyasint"`
		OutputAmount  cbor.RawMessage               `cbor:"1,keyasint"`
		DatumOption   *TransactionOutputDatumOption `cbor:"2,keyasint,omitempty"`
		ScriptRef     *cbor.Tag                     `cbor:"3,keyasint,omitempty"`
	}
	if _, err := cbor.Decode(cborData, &tmpOutput); err != nil {
		return err
	}
	o.OutputAddress = tmpOutput.OutputAddress
	o.OutputAmount = tmpOutput.OutputAmount
	o.DatumOption = tmpOutput.DatumOption
	o.ScriptRef = tmpOutput.ScriptRef
	return nil
}

func (o *TransactionOutput) unmarshalLegacy(cborData []byte) error {
	var tmpItems []cbor.RawMessage
	if _, err := cbor.Decode(cborData, &tmpItems); err != nil {
		return err
	}
	if len(tmpItems) < 2 || len(tmpItems) > 3 {
		return fmt.Errorf(
			"invalid legacy transaction output: expected 2 or 3 items, got %d",
			len(tmpItems),
		)
	}
	if _, err := cbor.Decode(tmpItems[0], &o.OutputAddress); err != nil {
		return err
	}
	o.OutputAmount = tmpItems[1]
	if len(tmpItems) == 3 {
		var tmpHash Blake2b256
		if _, err := cbor.Decode(tmpItems[2], &tmpHash); err != nil {
			return err
		}
		o.DatumOption = &TransactionOutputDatumOption{hash: &tmpHash}
	}
	o.legacyOutput = true
	return nil
}

func (o *TransactionOutput) MarshalCBOR() ([]byte, error) {
	if o.Cbor() != nil {
		return o.Cbor(), nil
	}
	tmpOutput := map[uint]any{
		0: o.OutputAddress,
		1: o.OutputAmount,
	}
	if o.DatumOption != nil {
		tmpOutput[2] = o.DatumOption
	}
	if o.ScriptRef != nil {
		tmpOutput[3] = o.ScriptRef
	}
	return cbor.Encode(tmpOutput)
}

func (o TransactionOutput) MarshalJSON() ([]byte, error) {
	tmpObj := struct {
		Address   Address `json:"address"`
		Amount    uint64  `json:"amount"`
		DatumHash string  `json:"datumHash,omitempty"`
		Datum     *Datum  `json:"datum,omitempty"`
	}{
		Address: o.OutputAddress,
		Amount:  o.Amount(),
		Datum:   o.Datum(),
	}
	if hash := o.DatumHash(); hash != nil {
		tmpObj.DatumHash = hash.String()
	}
	return json.Marshal(&tmpObj)
}

func (o TransactionOutput) Address() Address {
	return o.OutputAddress
}

// Amount returns the lovelace amount of the output, ignoring any multi-assets
func (o TransactionOutput) Amount() uint64 {
	var coin uint64
	if _, err := cbor.Decode(o.OutputAmount, &coin); err == nil {
		return coin
	}
	var tmpValue struct {
		cbor.StructAsArray
		Coin   uint64
		Assets cbor.RawMessage
	}
	if _, err := cbor.Decode(o.OutputAmount, &tmpValue); err == nil {
		return tmpValue.Coin
	}
	return 0
}

func (o TransactionOutput) DatumHash() *Blake2b256 {
	if o.DatumOption != nil {
		return o.DatumOption.hash
	}
	return nil
}

func (o TransactionOutput) Datum() *Datum {
	if o.DatumOption != nil {
		return o.DatumOption.data
	}
	return nil
}

func (o TransactionOutput) IsLegacy() bool {
	return o.legacyOutput
}
