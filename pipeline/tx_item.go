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
	"strings"
	"sync"
	"time"

	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/wallet"
)

// TxItem represents a transaction as it moves through the pipeline.
// It is thread-safe and tracks the processing state at each stage.
type TxItem struct {
	// Immutable fields (set at construction, never modified)
	txHex          string
	sequenceNumber uint64
	receivedAt     time.Time

	// Overrides of the pipeline configuration, set by ItemOption
	selectedMember *string
	wallet         wallet.Wallet
	hasWallet      bool

	// Mutable fields protected by mutex
	mu sync.RWMutex

	// Decode stage results
	tx *ledger.Transaction

	// Classify and anchor stage results
	result *Result

	// Wallet stage results
	walletValidation TxValidationState
	stakeCredential  ledger.Blake2b224
	connected        bool

	err            error
	stageDurations map[string]time.Duration
}

// ItemOption overrides part of the pipeline configuration for one item
type ItemOption func(*TxItem)

// WithItemWallet replaces the pipeline wallet for this item. A nil wallet
// runs the item disconnected
func WithItemWallet(w wallet.Wallet) ItemOption {
	return func(t *TxItem) {
		t.wallet = w
		t.hasWallet = true
	}
}

// WithItemSelectedMember replaces the selected committee member for this item
func WithItemSelectedMember(hotCredential string) ItemOption {
	return func(t *TxItem) {
		t.selectedMember = &hotCredential
	}
}

// NewTxItem creates a new TxItem for the given transaction hex
func NewTxItem(txHex string, seq uint64, opts ...ItemOption) *TxItem {
	t := &TxItem{
		txHex:          strings.TrimSpace(txHex),
		sequenceNumber: seq,
		receivedAt:     time.Now(),
		stageDurations: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TxHex returns the transaction hex that was submitted
func (t *TxItem) TxHex() string {
	return t.txHex
}

// SequenceNumber returns the sequence number assigned to this item.
func (t *TxItem) SequenceNumber() uint64 {
	return t.sequenceNumber
}


// Transaction returns the decoded transaction, or nil if not yet decoded or decode failed.
func (t *TxItem) Transaction() *ledger.Transaction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tx
}

// SetTransaction sets the decoded transaction.
// Clears any previously set decode error for consistency.
func (t *TxItem) SetTransaction(tx *ledger.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tx = tx
}



// IsDecoded returns true if the transaction has been successfully decoded.
func (t *TxItem) IsDecoded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tx != nil
}

// Result returns the classification result, or nil before the classify stage
func (t *TxItem) Result() *Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

func (t *TxItem) SetResult(result *Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result = result
}

// SetWalletValidation sets the wallet-context validation result.
func (t *TxItem) SetWalletValidation(
	state TxValidationState,
	stakeCredential ledger.Blake2b224,
	connected bool,
) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.walletValidation = state
	t.stakeCredential = stakeCredential
	t.connected = connected
}

// WalletValidation returns the transaction validation state including the
// wallet-dependent flags
func (t *TxItem) WalletValidation() TxValidationState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.walletValidation
}

// StakeCredential returns the wallet stake credential used for validation
func (t *TxItem) StakeCredential() ledger.Blake2b224 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stakeCredential
}

// Connected reports whether a wallet was available to the wallet stage
func (t *TxItem) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Err returns the error that stopped processing, if any.
func (t *TxItem) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *TxItem) SetErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// SetStageDuration records the time spent in a stage.
func (t *TxItem) SetStageDuration(stage string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stageDurations[stage] = duration
}

// StageDuration returns the time spent in a stage.
func (t *TxItem) StageDuration(stage string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stageDurations[stage]
}

// TotalDuration returns the total processing time from receipt to completion.
func (t *TxItem) TotalDuration() time.Duration {
	return time.Since(t.receivedAt)
}
