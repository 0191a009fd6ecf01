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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
	"github.com/jinzhu/copier"
)

var (
	cachedDecMode     _cbor.DecMode
	cachedDecModeErr  error
	cachedDecModeOnce sync.Once
)

// getDecMode returns a cached DecMode, initializing it on first use.
func getDecMode() (_cbor.DecMode, error) {
	cachedDecModeOnce.Do(func() {
		decOptions := _cbor.DecOptions{
			ExtraReturnErrors: _cbor.ExtraDecErrorUnknownField,
			// Plutus datums in the wild can be deeply nested
			MaxNestedLevels: 256,
		}
		cachedDecMode, cachedDecModeErr = decOptions.DecModeWithTags(customTagSet)
	})
	return cachedDecMode, cachedDecModeErr
}

// Decode decodes the first CBOR item in dataBytes into dest and returns the
// number of bytes consumed
func Decode(dataBytes []byte, dest any) (int, error) {
	decMode, err := getDecMode()
	if err != nil {
		return 0, err
	}
	dec := decMode.NewDecoder(bytes.NewReader(dataBytes))
	err = dec.Decode(dest)
	return dec.NumBytesRead(), err
}

// DecodeExact decodes dataBytes into dest and fails if any bytes are left over
func DecodeExact(dataBytes []byte, dest any) error {
	n, err := Decode(dataBytes, dest)
	if err != nil {
		return err
	}
	if n != len(dataBytes) {
		return fmt.Errorf(
			"%d trailing bytes after CBOR item",
			len(dataBytes)-n,
		)
	}
	return nil
}

var (
	decodeGenericTypeCache      = map[reflect.Type]reflect.Type{}
	decodeGenericTypeCacheMutex sync.RWMutex
)

// DecodeGeneric decodes the specified CBOR into the destination object without using the
// destination object's UnmarshalCBOR() function
func DecodeGeneric(cborData []byte, dest any) error {
	valueDest := reflect.ValueOf(dest)
	if valueDest.Kind() != reflect.Pointer ||
		valueDest.Elem().Kind() != reflect.Struct {
		return errors.New("destination must be a pointer to a struct")
	}
	typeDest := valueDest.Elem().Type()
	decodeGenericTypeCacheMutex.RLock()
	tmpTypeDest, ok := decodeGenericTypeCache[typeDest]
	decodeGenericTypeCacheMutex.RUnlock()
	if !ok {
		// Build a struct type with the same fields but none of the methods, so that
		// a custom UnmarshalCBOR() on the destination is bypassed
		destTypeFields := []reflect.StructField{}
		for i := range typeDest.NumField() {
			tmpField := typeDest.Field(i)
			if tmpField.IsExported() && tmpField.Name != "DecodeStoreCbor" {
				destTypeFields = append(destTypeFields, tmpField)
			}
		}
		tmpTypeDest = reflect.StructOf(destTypeFields)
		decodeGenericTypeCacheMutex.Lock()
		decodeGenericTypeCache[typeDest] = tmpTypeDest
		decodeGenericTypeCacheMutex.Unlock()
	}
	tmpDest := reflect.New(tmpTypeDest)
	if _, err := Decode(cborData, tmpDest.Interface()); err != nil {
		return err
	}
	return copier.Copy(dest, tmpDest.Interface())
}

// StreamDecoder provides sequential CBOR decoding with position tracking.
// It wraps the underlying decoder to track byte offsets of each decoded item.
type StreamDecoder struct {
	dec      *_cbor.Decoder
	decMode  _cbor.DecMode
	data     []byte
	consumed int // bytes consumed by Advance() calls
}

// NewStreamDecoder creates a decoder for sequential CBOR item extraction with position tracking.
func NewStreamDecoder(data []byte) (*StreamDecoder, error) {
	decMode, err := getDecMode()
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{
		dec:     decMode.NewDecoder(bytes.NewReader(data)),
		decMode: decMode,
		data:    data,
	}, nil
}

// Position returns the current byte position in the stream.
func (d *StreamDecoder) Position() int {
	return d.consumed + d.dec.NumBytesRead()
}

// EOF returns true if the decoder has reached the end of the data.
func (d *StreamDecoder) EOF() bool {
	return d.Position() >= len(d.data)
}

// Decode decodes the next CBOR item into dest and returns its byte range.
// Returns (startOffset, length, error).
func (d *StreamDecoder) Decode(dest any) (int, int, error) {
	start := d.Position()
	if err := d.dec.Decode(dest); err != nil {
		return 0, 0, err
	}
	return start, d.Position() - start, nil
}

// DecodeRaw decodes the next CBOR item and returns both its value and raw bytes.
func (d *StreamDecoder) DecodeRaw(dest any) ([]byte, error) {
	start, length, err := d.Decode(dest)
	if err != nil {
		return nil, err
	}
	return d.data[start : start+length], nil
}

// Skip skips the next CBOR item and returns its byte range.
func (d *StreamDecoder) Skip() (int, int, error) {
	start := d.Position()
	if err := d.dec.Skip(); err != nil {
		return 0, 0, err
	}
	return start, d.Position() - start, nil
}

// Advance moves the decoder position forward by n bytes without decoding.
// This is used to step over headers that were parsed manually.
func (d *StreamDecoder) Advance(n int) error {
	if n < 0 {
		return errors.New("cannot advance by negative amount")
	}
	newPos := d.Position() + n
	if newPos > len(d.data) {
		return errors.New("advance would exceed data bounds")
	}
	d.consumed = newPos
	d.dec = d.decMode.NewDecoder(bytes.NewReader(d.data[d.consumed:]))
	return nil
}

// DecodeArrayHeader decodes a CBOR array header and returns the number of elements.
// Only the header is consumed, not the array contents.
func (d *StreamDecoder) DecodeArrayHeader() (int, error) {
	return d.decodeHeader(CborTypeArray)
}

// DecodeMapHeader decodes a CBOR map header and returns the number of key/value pairs.
// Only the header is consumed, so entries can be read one by one in wire order.
func (d *StreamDecoder) DecodeMapHeader() (int, error) {
	return d.decodeHeader(CborTypeMap)
}

func (d *StreamDecoder) decodeHeader(majorType uint8) (int, error) {
	pos := d.Position()
	length, headerLen, err := readHeader(d.data[pos:], majorType)
	if err != nil {
		return 0, err
	}
	if err := d.Advance(headerLen); err != nil {
		return 0, err
	}
	return length, nil
}

// readHeader parses a definite-length array or map header at the start of data
func readHeader(data []byte, majorType uint8) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, errors.New("unexpected end of data")
	}
	firstByte := data[0]
	if firstByte&CborTypeMask != majorType {
		return 0, 0, fmt.Errorf(
			"expected major type 0x%x, got 0x%x",
			majorType,
			firstByte&CborTypeMask,
		)
	}
	additionalInfo := firstByte & 0x1f
	var length uint64
	headerLen := 1
	switch {
	case additionalInfo <= CborMaxUintSimple:
		length = uint64(additionalInfo)
	case additionalInfo >= 24 && additionalInfo <= 27:
		// 1, 2, 4 or 8 byte big-endian length follows
		size := 1 << (additionalInfo - 24)
		if len(data) < 1+size {
			return 0, 0, errors.New("unexpected end of data reading length")
		}
		var buf [8]byte
		copy(buf[8-size:], data[1:1+size])
		length = binary.BigEndian.Uint64(buf[:])
		headerLen += size
	case additionalInfo == cborIndefinite:
		return 0, 0, errors.New("indefinite length items not supported in header-only decode")
	default:
		return 0, 0, fmt.Errorf("invalid additional info: %d", additionalInfo)
	}
	if length > math.MaxInt32 {
		return 0, 0, errors.New("length exceeds maximum int32 value")
	}
	// Every entry needs at least one byte, which bounds allocations on hostile input
	if length > uint64(len(data)) {
		return 0, 0, fmt.Errorf("declared length %d exceeds available data", length)
	}
	return int(length), headerLen, nil
}

// ListLength returns the number of items in a definite-length CBOR array
func ListLength(cborData []byte) (int, error) {
	length, _, err := readHeader(cborData, CborTypeArray)
	if err != nil {
		var tmp []RawMessage
		if _, err := Decode(cborData, &tmp); err != nil {
			return 0, err
		}
		return len(tmp), nil
	}
	return length, nil
}

// MapLength returns the number of entries in a CBOR map
func MapLength(cborData []byte) (int, error) {
	length, _, err := readHeader(cborData, CborTypeMap)
	if err != nil {
		// Indefinite-length maps need a full walk
		entries, err := DecodeMapEntries(cborData)
		if err != nil {
			return 0, err
		}
		return len(entries), nil
	}
	return length, nil
}

// DecodeIdFromList extracts the integer type ID from the first item of a CBOR
// list, which is how tagged unions such as datum options are encoded
func DecodeIdFromList(cborData []byte) (int, error) {
	d, err := NewStreamDecoder(cborData)
	if err != nil {
		return 0, err
	}
	count, err := d.DecodeArrayHeader()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, errors.New("cannot return first item from empty list")
	}
	var id int
	if _, _, err := d.Decode(&id); err != nil {
		return 0, fmt.Errorf("decode list type ID: %w", err)
	}
	return id, nil
}
