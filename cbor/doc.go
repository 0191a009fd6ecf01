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

// Package cbor provides the CBOR encoding/decoding helpers used by the
// transaction codec.
//
// It wraps github.com/fxamacker/cbor/v2 with a shared decode mode, helpers for
// embedding, and a stream decoder that can walk map and array headers without
// losing the wire order of their entries.
//
// # Key Types
//
// Embeddable types for struct encoding:
//   - StructAsArray: Embed to encode struct fields as CBOR array instead of map
//   - DecodeStoreCbor: Embed to preserve original CBOR bytes for hashing
//
// Utility types:
//   - RawMessage: Deferred decoding (like json.RawMessage)
//   - ByteString: Bytestrings that can be used as map keys
//   - Tag, RawTag: CBOR semantic tags
//   - Value: arbitrary CBOR data, with a JSON display form
//
// # Critical Pattern: DecodeStoreCbor
//
// When a type needs its original CBOR bytes preserved for hashing:
//
//	type MyType struct {
//	    cbor.DecodeStoreCbor
//	    Field1 string
//	}
//
//	func (m *MyType) UnmarshalCBOR(data []byte) error {
//	    if err := cbor.DecodeGeneric(data, m); err != nil {
//	        return err
//	    }
//	    m.SetCbor(data)
//	    return nil
//	}
//
// Later, m.Cbor() returns the original bytes for hash computation. Never hash
// re-encoded data: map ordering and length encodings are not guaranteed to
// survive a round trip.
package cbor
