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

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/vote-inspector/ledger"
)

var ErrReadOnly = errors.New("wallet is read-only")

// WatchWallet is a read-only wallet built from a network id and a stake
// credential. It reports a reward address as its change address and cannot
// sign
type WatchWallet struct {
	networkId uint
	stakeCred ledger.Blake2b224
}

func NewWatchWallet(networkId uint, stakeCred ledger.Blake2b224) (*WatchWallet, error) {
	if networkId != ledger.AddressNetworkTestnet &&
		networkId != ledger.AddressNetworkMainnet {
		return nil, fmt.Errorf("invalid network ID: %d", networkId)
	}
	return &WatchWallet{
		networkId: networkId,
		stakeCred: stakeCred,
	}, nil
}

// NewWatchWalletFromHex parses a hex stake credential hash
func NewWatchWalletFromHex(networkId uint, stakeCredHex string) (*WatchWallet, error) {
	stakeCred, err := ledger.NewBlake2b224FromHex(stakeCredHex)
	if err != nil {
		return nil, fmt.Errorf("decode stake credential: %w", err)
	}
	return NewWatchWallet(networkId, stakeCred)
}

func (w *WatchWallet) NetworkID(ctx context.Context) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return w.networkId, nil
}

func (w *WatchWallet) ChangeAddress(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	addr, err := ledger.NewAddressFromParts(
		ledger.AddressTypeNoneKey,
		uint8(w.networkId), // #nosec G115
		nil,
		w.stakeCred.Bytes(),
	)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func (w *WatchWallet) SignTx(context.Context, string, bool) (string, error) {
	return "", ErrReadOnly
}

func (w *WatchWallet) Collateral(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []string{}, nil
}
