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
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/blinklabs-io/vote-inspector/wallet"
)

// FailurePrefix starts the message of a failed inspection
const FailurePrefix = "Transaction validation failed. "

// Session messages
const (
	MessageConnectWallet = "Please connect your wallet first."
	MessageConnected     = "Connected to wallet"
)

// ErrStaleResult is returned by Check when a newer check, wallet change or
// disconnect happened while the transaction was being inspected
var ErrStaleResult = errors.New("inspection result is stale")

type walletCell struct {
	wallet wallet.Wallet
}

// Inspector holds the inspection state of one session. Results of a Check are
// only committed while its generation is current.
type Inspector struct {
	pipeline   *Pipeline
	logger     *slog.Logger
	generation atomic.Uint64
	latest     atomic.Pointer[walletCell]

	mu    sync.RWMutex
	state State
}

// NewInspector creates an Inspector. The wallet stage always reads the
// wallet set with SetWallet, so a WithWalletFunc option is overridden.
func NewInspector(opts ...PipelineOption) *Inspector {
	i := &Inspector{}
	opts = append(opts, WithWalletFunc(i.Wallet))
	i.pipeline = New(opts...)
	i.logger = i.pipeline.config.Logger.With("component", "inspector")
	return i
}

// Pipeline returns the pipeline used for checks.
func (i *Inspector) Pipeline() *Pipeline {
	return i.pipeline
}

// Wallet returns the latest wallet, or nil when disconnected.
func (i *Inspector) Wallet() wallet.Wallet {
	cell := i.latest.Load()
	if cell == nil {
		return nil
	}
	return cell.wallet
}

// SetWallet replaces the wallet. Any check in flight becomes stale. A nil
// wallet disconnects the session.
func (i *Inspector) SetWallet(w wallet.Wallet) {
	if w == nil {
		i.latest.Store(nil)
		i.SetConnected(false)
		return
	}
	i.latest.Store(&walletCell{wallet: w})
	i.SetConnected(true)
}

// SetConnected updates the connection flag. Disconnecting resets all derived
// state immediately.
func (i *Inspector) SetConnected(connected bool) {
	i.generation.Add(1)
	i.mu.Lock()
	defer i.mu.Unlock()
	if !connected {
		i.latest.Store(nil)
		i.state = State{Message: MessageConnectWallet}
		i.logger.Debug("wallet disconnected, state reset")
		return
	}
	i.state.Connected = true
	i.state.Message = MessageConnected
}

// Connected reports whether a wallet is connected.
func (i *Inspector) Connected() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state.Connected
}

// Check inspects txHex and commits the result to the session state. A failed
// inspection resets the derived state and records the failure message.
func (i *Inspector) Check(ctx context.Context, txHex string) (State, error) {
	gen := i.generation.Add(1)
	item := i.pipeline.Check(ctx, txHex)

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.generation.Load() != gen {
		i.pipeline.metrics.RecordStale()
		i.logger.Debug(
			"discarding stale inspection result",
			"sequence", item.SequenceNumber(),
		)
		return i.state, ErrStaleResult
	}
	state, err := StateFromItem(item)
	state.Connected = i.state.Connected
	i.state = state
	if err != nil {
		i.logger.Warn("transaction inspection failed", "error", err)
		return i.state, err
	}
	return i.state, nil
}

// StateFromItem builds the inspection state of a processed item. A failed
// item gives an empty state carrying the failure message
func StateFromItem(item *TxItem) (State, error) {
	if err := item.Err(); err != nil {
		return State{
			Connected: item.Connected(),
			Message:   FailurePrefix + err.Error(),
		}, err
	}
	result := item.Result()
	if result == nil {
		return State{Message: FailurePrefix + ErrNotDecoded.Error()}, ErrNotDecoded
	}
	state := State{
		TxHex:       item.TxHex(),
		Transaction: item.Transaction(),
		Validation:  item.WalletValidation(),
		Kind:        result.Kind,
		NetworkID:   result.NetworkID,
		Connected:   item.Connected(),
	}
	if cred := item.StakeCredential(); !cred.IsZero() {
		state.StakeCredential = cred.String()
	}
	return state, nil
}

// Acknowledge sets the acknowledgment of the transaction details.
func (i *Inspector) Acknowledge(acknowledged bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.Acknowledged = acknowledged
}

// SetSignature records the witness produced for the current transaction.
func (i *Inspector) SetSignature(signature string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.Signature = signature
}

// Snapshot returns a copy of the session state.
func (i *Inspector) Snapshot() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}
