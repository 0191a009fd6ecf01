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

// Package wallet defines the wallet capability used for network detection,
// stake credential derivation and signing, along with a key-file backed
// implementation.
package wallet

import (
	"context"
	"errors"
)

var ErrNotConnected = errors.New("wallet is not connected")

// Wallet is the capability exposed by a connected wallet. Every call may fail
type Wallet interface {
	NetworkID(ctx context.Context) (uint, error)
	ChangeAddress(ctx context.Context) (string, error)
	// SignTx returns the transaction hex with the wallet's witnesses added.
	// With partialSign the wallet only adds the witnesses it can provide
	SignTx(ctx context.Context, txHex string, partialSign bool) (string, error)
	Collateral(ctx context.Context) ([]string, error)
}
