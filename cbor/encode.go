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
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
)

var (
	cachedEncMode     _cbor.EncMode
	cachedEncModeErr  error
	cachedEncModeOnce sync.Once
)

func getEncMode() (_cbor.EncMode, error) {
	cachedEncModeOnce.Do(func() {
		opts := _cbor.EncOptions{
			// Make sure that maps have ordered keys
			Sort: _cbor.SortCoreDeterministic,
		}
		cachedEncMode, cachedEncModeErr = opts.EncModeWithTags(customTagSet)
	})
	return cachedEncMode, cachedEncModeErr
}

func Encode(data any) ([]byte, error) {
	em, err := getEncMode()
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(nil)
	enc := em.NewEncoder(buf)
	err = enc.Encode(data)
	return buf.Bytes(), err
}

// AppendArrayHeader appends a definite-length array header to buf
func AppendArrayHeader(buf []byte, length int) []byte {
	return appendHeader(buf, CborTypeArray, uint64(length)) // #nosec G115
}

// AppendMapHeader appends a definite-length map header to buf
func AppendMapHeader(buf []byte, length int) []byte {
	return appendHeader(buf, CborTypeMap, uint64(length)) // #nosec G115
}

func appendHeader(buf []byte, majorType uint8, length uint64) []byte {
	switch {
	case length <= uint64(CborMaxUintSimple):
		return append(buf, majorType|uint8(length))
	case length <= 0xff:
		return append(buf, majorType|24, uint8(length))
	case length <= 0xffff:
		buf = append(buf, majorType|25)
		return binary.BigEndian.AppendUint16(buf, uint16(length))
	case length <= 0xffffffff:
		buf = append(buf, majorType|26)
		return binary.BigEndian.AppendUint32(buf, uint32(length))
	default:
		buf = append(buf, majorType|27)
		return binary.BigEndian.AppendUint64(buf, length)
	}
}
