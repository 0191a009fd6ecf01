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

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/vote-inspector/ledger"
)

// ErrNilStage is returned when a nil stage is passed to a worker pool.
var ErrNilStage = errors.New("pipeline: nil stage")

// ErrInvalidTransaction is returned when the transaction hex does not decode
var ErrInvalidTransaction = errors.New("invalid transaction format")

// DecodeStage decodes transaction hex and checks that a body is present.
type DecodeStage struct{}

// NewDecodeStage creates a new DecodeStage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{}
}

// Name returns the stage name.
func (s *DecodeStage) Name() string {
	return StageDecode
}

// Process decodes the transaction hex in the item.
func (s *DecodeStage) Process(ctx context.Context, item *TxItem) (err error) {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidTransaction, r)
		}
	}()

	tx, err := ledger.NewTransactionFromHex(item.TxHex())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if _, err := tx.RequireBody(); err != nil {
		return err
	}
	item.SetTransaction(tx)
	return nil
}
