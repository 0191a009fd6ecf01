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

package cbor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Helpful wrapper for parsing arbitrary CBOR data which may contain types that
// cannot be easily represented in Go (such as maps with bytestring keys).
// Maps are kept as ordered entries so the wire order survives.
type Value struct {
	Value any
	// We store this as a string so that the type is still hashable for use as map keys
	cborData string
}

// MapEntry is one decoded key/value pair of a CBOR map
type MapEntry struct {
	Key   any
	Value any
}

// Constructor is a Plutus data constructor application
type Constructor struct {
	Index  uint64
	Fields []any
}

// RawMapEntry is one undecoded key/value pair of a CBOR map, in wire order
type RawMapEntry struct {
	Key   RawMessage
	Value RawMessage
}

// DecodeMapEntries returns the entries of a CBOR map in wire order. Both
// definite and indefinite-length maps are accepted.
func DecodeMapEntries(data []byte) ([]RawMapEntry, error) {
	d, err := NewStreamDecoder(data)
	if err != nil {
		return nil, err
	}
	var ret []RawMapEntry
	readEntry := func() error {
		var entry RawMapEntry
		if _, _, err := d.Decode(&entry.Key); err != nil {
			return fmt.Errorf("decode map key: %w", err)
		}
		if _, _, err := d.Decode(&entry.Value); err != nil {
			return fmt.Errorf("decode map value: %w", err)
		}
		ret = append(ret, entry)
		return nil
	}
	if len(data) > 0 && data[0] == CborTypeMap|cborIndefinite {
		if err := d.Advance(1); err != nil {
			return nil, err
		}
		for {
			pos := d.Position()
			if pos >= len(data) {
				return nil, errors.New("unterminated indefinite-length map")
			}
			// break stop code
			if data[pos] == 0xff {
				break
			}
			if err := readEntry(); err != nil {
				return nil, err
			}
		}
		return ret, nil
	}
	count, err := d.DecodeMapHeader()
	if err != nil {
		return nil, err
	}
	ret = make([]RawMapEntry, 0, count)
	for range count {
		if err := readEntry(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (v *Value) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty CBOR data")
	}
	// Save the original CBOR
	v.cborData = string(data)
	switch data[0] & CborTypeMask {
	case CborTypeMap:
		entries, err := DecodeMapEntries(data)
		if err != nil {
			return err
		}
		newValue := make([]MapEntry, 0, len(entries))
		for _, entry := range entries {
			var key, val Value
			if _, err := Decode(entry.Key, &key); err != nil {
				return err
			}
			if _, err := Decode(entry.Value, &val); err != nil {
				return err
			}
			newValue = append(newValue, MapEntry{Key: key.Value, Value: val.Value})
		}
		v.Value = newValue
	case CborTypeArray:
		tmpValue := []Value{}
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		newValue := make([]any, 0, len(tmpValue))
		for _, value := range tmpValue {
			newValue = append(newValue, value.Value)
		}
		v.Value = newValue
	case CborTypeTextString:
		var tmpValue string
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		v.Value = tmpValue
	case CborTypeByteString:
		var tmpValue ByteString
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		v.Value = tmpValue
	case CborTypeTag:
		return v.unmarshalTag(data)
	default:
		var tmpValue any
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		v.Value = tmpValue
	}
	return nil
}

func (v *Value) unmarshalTag(data []byte) error {
	tmpTag := RawTag{}
	if _, err := Decode(data, &tmpTag); err != nil {
		return err
	}
	// Bignums decode natively
	if tmpTag.Number == 2 || tmpTag.Number == 3 {
		var tmpInt big.Int
		if _, err := Decode(data, &tmpInt); err != nil {
			return err
		}
		v.Value = &tmpInt
		return nil
	}
	tmpValue := Value{}
	if _, err := Decode(tmpTag.Content, &tmpValue); err != nil {
		return err
	}
	idx, isConstr := ConstructorIndex(tmpTag.Number)
	if !isConstr {
		v.Value = Tag{
			Number:  tmpTag.Number,
			Content: tmpValue.Value,
		}
		return nil
	}
	fields, ok := tmpValue.Value.([]any)
	if !ok {
		return fmt.Errorf("constructor tag %d content is not a list", tmpTag.Number)
	}
	if tmpTag.Number == CborTagAlternative3 {
		// General form: [index, [fields...]]
		if len(fields) != 2 {
			return errors.New("general constructor form must have 2 items")
		}
		genIdx, ok := fields[0].(uint64)
		if !ok {
			return errors.New("general constructor index is not an unsigned integer")
		}
		genFields, ok := fields[1].([]any)
		if !ok {
			return errors.New("general constructor fields are not a list")
		}
		idx, fields = genIdx, genFields
	}
	v.Value = Constructor{Index: idx, Fields: fields}
	return nil
}

func (v Value) Cbor() []byte {
	return []byte(v.cborData)
}

// MarshalJSON renders the value in the detailed schema used for Plutus data,
// with bytestrings as hex
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(detailed(v.Value))
}

func detailed(val any) any {
	switch x := val.(type) {
	case uint64, int64, *big.Int:
		return map[string]any{"int": x}
	case ByteString:
		return map[string]any{"bytes": x.String()}
	case string:
		return map[string]any{"string": x}
	case []any:
		items := make([]any, 0, len(x))
		for _, item := range x {
			items = append(items, detailed(item))
		}
		return map[string]any{"list": items}
	case []MapEntry:
		entries := make([]any, 0, len(x))
		for _, entry := range x {
			entries = append(entries, map[string]any{
				"k": detailed(entry.Key),
				"v": detailed(entry.Value),
			})
		}
		return map[string]any{"map": entries}
	case Constructor:
		fields := make([]any, 0, len(x.Fields))
		for _, field := range x.Fields {
			fields = append(fields, detailed(field))
		}
		return map[string]any{
			"constructor": x.Index,
			"fields":      fields,
		}
	case Tag:
		return map[string]any{
			"tag":   x.Number,
			"value": detailed(x.Content),
		}
	default:
		return x
	}
}

// LazyValue stores raw CBOR and decodes it on first use
type LazyValue struct {
	value    *Value
	cborData []byte
}

func (l *LazyValue) UnmarshalCBOR(data []byte) error {
	l.cborData = make([]byte, len(data))
	copy(l.cborData, data)
	l.value = nil
	return nil
}

func (l *LazyValue) MarshalCBOR() ([]byte, error) {
	return l.cborData, nil
}

func (l *LazyValue) Cbor() []byte {
	return l.cborData
}

func (l *LazyValue) Decode() (*Value, error) {
	if l.value != nil {
		return l.value, nil
	}
	tmpValue := &Value{}
	if err := tmpValue.UnmarshalCBOR(l.cborData); err != nil {
		return nil, err
	}
	l.value = tmpValue
	return l.value, nil
}
