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
	"fmt"

	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/validate"
	"github.com/blinklabs-io/vote-inspector/wallet"
)

// WalletStage adds the wallet-dependent validation flags. The wallet is read
// from walletFunc when the stage runs, never earlier
type WalletStage struct {
	walletFunc WalletFunc
	opts       ProcessOptions
	predicates *validate.Predicates
}

func NewWalletStage(walletFunc WalletFunc, opts ProcessOptions) *WalletStage {
	return &WalletStage{
		walletFunc: walletFunc,
		opts:       opts,
		predicates: opts.Predicates,
	}
}

func (s *WalletStage) Name() string {
	return StageWallet
}

func (s *WalletStage) Process(ctx context.Context, item *TxItem) error {
	result := item.Result()
	tx := item.Transaction()
	if result == nil || tx == nil {
		return ErrNotDecoded
	}
	body, err := tx.RequireBody()
	if err != nil {
		return err
	}
	w := s.currentWallet()
	if item.hasWallet {
		w = item.wallet
	}
	state, stakeCred, err := ProcessWalletValidation(ctx, result.Base, body, w, s.predicates)
	if err != nil {
		return err
	}
	if w != nil {
		if err := s.recheckCommitteeCredentials(ctx, result, body, w); err != nil {
			return err
		}
	}
	item.SetWalletValidation(state, stakeCred, w != nil)
	return nil
}

// recheckCommitteeCredentials repeats the committee credential check against
// the allow-list entry of the wallet network when it differs from the
// network of the transaction
func (s *WalletStage) recheckCommitteeCredentials(
	ctx context.Context,
	result *Result,
	body *ledger.TransactionBody,
	w wallet.Wallet,
) error {
	kind, ok := result.Kind.(VoteKind)
	if !ok || len(s.opts.AllowList) == 0 {
		return nil
	}
	networkId, err := w.NetworkID(ctx)
	if err != nil {
		return fmt.Errorf("get wallet network: %w", err)
	}
	if networkId == result.NetworkID {
		return nil
	}
	allowed := s.predicates.HasValidICCCredentials(body, networkId, s.opts.AllowList)
	for idx := range kind.Validations {
		tmpVal := allowed
		kind.Validations[idx].HasICCCredentials = &tmpVal
	}
	return nil
}

func (s *WalletStage) currentWallet() wallet.Wallet {
	if s.walletFunc == nil {
		return nil
	}
	return s.walletFunc()
}
