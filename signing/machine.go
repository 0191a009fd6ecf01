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

package signing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/wallet"
)

// FailurePrefix starts the message of a failed signing attempt
const FailurePrefix = "Transaction signing failed. "

// ErrNotSignable is returned when the gate does not allow signing
var ErrNotSignable = errors.New("transaction is not signable")

// FailedError is the error of a signing attempt that reached the Failed state
type FailedError struct {
	Message string
	Err     error
}

func (e *FailedError) Error() string {
	return e.Message
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// WalletFunc returns the latest wallet, or nil when disconnected
type WalletFunc func() wallet.Wallet

type MachineOption func(*Machine)

func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithStateMap replaces the transition table
func WithStateMap(stateMap StateMap) MachineOption {
	return func(m *Machine) {
		m.stateMap = stateMap
	}
}

// Machine signs a transaction through the latest wallet and verifies the
// returned witness
type Machine struct {
	mu         sync.Mutex
	stateMap   StateMap
	state      State
	walletFunc WalletFunc
	logger     *slog.Logger
	witness    Witness
	failure    *FailedError
}

func NewMachine(walletFunc WalletFunc, opts ...MachineOption) *Machine {
	m := &Machine{
		stateMap:   DefaultStateMap,
		state:      StateIdle,
		walletFunc: walletFunc,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "signing")
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Witness returns the witness of the last successful signing
func (m *Machine) Witness() (Witness, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.witness, m.state == StateSuccess
}

// Failure returns the error of the last failed signing
func (m *Machine) Failure() *FailedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

func (m *Machine) transition(event Event) error {
	next, err := m.stateMap.Next(m.state, event)
	if err != nil {
		return err
	}
	m.logger.Debug(
		"signing state transition",
		"from", m.state.String(),
		"to", next.String(),
		"event", event.String(),
	)
	m.state = next
	return nil
}

// Sign asks the latest wallet for a partial signature of unsignedHex and
// verifies it. A zero expectedStakeCred is taken from the wallet change
// address. A finished machine returns to Idle first.
func (m *Machine) Sign(
	ctx context.Context,
	gate Gate,
	unsignedHex string,
	expectedStakeCred ledger.Blake2b224,
) (Witness, error) {
	m.mu.Lock()
	if m.state == StateSuccess || m.state == StateFailed {
		if err := m.transition(EventReset); err != nil {
			m.mu.Unlock()
			return Witness{}, err
		}
		m.witness = Witness{}
		m.failure = nil
	}
	if m.state == StateIdle && !gate.CanSign() {
		m.mu.Unlock()
		return Witness{}, fmt.Errorf("%w: %s", ErrNotSignable, gate.Warning())
	}
	if err := m.transition(EventSign); err != nil {
		m.mu.Unlock()
		return Witness{}, err
	}
	m.mu.Unlock()

	witness, err := m.sign(ctx, unsignedHex, expectedStakeCred)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failure = &FailedError{
			Message: FailurePrefix + err.Error(),
			Err:     err,
		}
		m.logger.Warn("transaction signing failed", "error", err)
		if tErr := m.transition(EventFail); tErr != nil {
			return Witness{}, tErr
		}
		return Witness{}, m.failure
	}
	m.witness = witness
	if err := m.transition(EventSigned); err != nil {
		return Witness{}, err
	}
	return witness, nil
}

func (m *Machine) sign(
	ctx context.Context,
	unsignedHex string,
	expectedStakeCred ledger.Blake2b224,
) (Witness, error) {
	var w wallet.Wallet
	if m.walletFunc != nil {
		w = m.walletFunc()
	}
	if w == nil {
		return Witness{}, wallet.ErrNotConnected
	}
	if expectedStakeCred.IsZero() {
		changeAddress, err := w.ChangeAddress(ctx)
		if err != nil {
			return Witness{}, fmt.Errorf("get wallet change address: %w", err)
		}
		addr, err := ledger.NewAddress(changeAddress)
		if err != nil {
			return Witness{}, fmt.Errorf("decode wallet change address: %w", err)
		}
		expectedStakeCred = addr.StakeKeyHash()
	}
	signedHex, err := w.SignTx(ctx, unsignedHex, true)
	if err != nil {
		return Witness{}, fmt.Errorf("wallet sign: %w", err)
	}
	if signedHex == "" {
		return Witness{}, errors.New("Error signing transaction.") //nolint:staticcheck
	}
	return VerifyWitness(signedHex, unsignedHex, expectedStakeCred)
}
