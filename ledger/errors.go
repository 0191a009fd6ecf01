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
	"errors"
	"fmt"
)

var (
	// ErrTransactionBodyNull is returned when a decoded transaction body has no outputs
	ErrTransactionBodyNull = errors.New("Transaction body is null") //nolint:staticcheck

	// ErrEmptyTransaction is returned when there is nothing to decode
	ErrEmptyTransaction = errors.New("empty transaction")

	// Sentinel for decode failures so callers can use errors.Is
	ErrTransactionDecode = errors.New("transaction decode error")

	ErrNoVkeyWitness = errors.New("no vkey witness present")
)

// DecodeError wraps a failure to decode transaction hex or CBOR
type DecodeError struct {
	Err error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("transaction decode error: %v", e.Err)
}

func (e DecodeError) Unwrap() error { return e.Err }

func (DecodeError) Is(target error) bool {
	return target == ErrTransactionDecode
}

// InvalidSignatureError indicates a vkey witness signature did not verify
type InvalidSignatureError struct {
	Reason string
}

func (e InvalidSignatureError) Error() string {
	return "invalid vkey signature: " + e.Reason
}
