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
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/blinklabs-io/vote-inspector/cbor"
	"github.com/blinklabs-io/vote-inspector/ledger"
)

// TextEnvelope is the JSON key file format written by cardano-cli
type TextEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// ParseSigningKey extracts an ed25519 signing key from a text envelope. Only
// 32 byte (non-extended) keys are supported
func ParseSigningKey(data []byte) (ed25519.PrivateKey, error) {
	var env TextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	cborData, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("decode key hex: %w", err)
	}
	var seed []byte
	if err := cbor.DecodeExact(cborData, &seed); err != nil {
		return nil, fmt.Errorf("decode key CBOR: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"unsupported %s key: expected %d bytes, got %d",
			env.Type,
			ed25519.SeedSize,
			len(seed),
		)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// NewTextEnvelope wraps a signing key in a text envelope
func NewTextEnvelope(keyType string, key ed25519.PrivateKey) (TextEnvelope, error) {
	cborData, err := cbor.Encode(key.Seed())
	if err != nil {
		return TextEnvelope{}, err
	}
	return TextEnvelope{
		Type:        keyType,
		Description: "",
		CborHex:     hex.EncodeToString(cborData),
	}, nil
}

// KeyWallet signs with local ed25519 keys. The stake key provides the stake
// credential and the witness checked after signing
type KeyWallet struct {
	networkId  uint
	stakeKey   ed25519.PrivateKey
	paymentKey ed25519.PrivateKey
	collateral []string
}

type KeyWalletOption func(*KeyWallet)

// WithPaymentKey sets a separate payment key, which is otherwise the stake key
func WithPaymentKey(key ed25519.PrivateKey) KeyWalletOption {
	return func(w *KeyWallet) {
		if key != nil {
			w.paymentKey = key
		}
	}
}

// WithCollateral sets the collateral UTxOs reported by the wallet
func WithCollateral(utxos []string) KeyWalletOption {
	return func(w *KeyWallet) {
		w.collateral = utxos
	}
}

func NewKeyWallet(
	networkId uint,
	stakeKey ed25519.PrivateKey,
	opts ...KeyWalletOption,
) (*KeyWallet, error) {
	if len(stakeKey) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid stake key")
	}
	if networkId != ledger.AddressNetworkTestnet &&
		networkId != ledger.AddressNetworkMainnet {
		return nil, fmt.Errorf("invalid network ID: %d", networkId)
	}
	w := &KeyWallet{
		networkId:  networkId,
		stakeKey:   stakeKey,
		paymentKey: stakeKey,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// LoadKeyWallet builds a KeyWallet from cardano-cli key files. The payment
// key path is optional
func LoadKeyWallet(
	networkId uint,
	stakeKeyPath string,
	paymentKeyPath string,
) (*KeyWallet, error) {
	stakeKey, err := loadSigningKey(stakeKeyPath)
	if err != nil {
		return nil, err
	}
	var opts []KeyWalletOption
	if paymentKeyPath != "" {
		paymentKey, err := loadSigningKey(paymentKeyPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithPaymentKey(paymentKey))
	}
	return NewKeyWallet(networkId, stakeKey, opts...)
}

func loadSigningKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := ParseSigningKey(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}

// StakeKeyHash returns the stake credential of the wallet
func (w *KeyWallet) StakeKeyHash() ledger.Blake2b224 {
	return ledger.Blake2b224Hash(w.stakeKey.Public().(ed25519.PublicKey))
}

func (w *KeyWallet) NetworkID(ctx context.Context) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return w.networkId, nil
}

func (w *KeyWallet) ChangeAddress(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	addr, err := ledger.NewAddressFromParts(
		ledger.AddressTypeKeyKey,
		uint8(w.networkId), // #nosec G115
		ledger.Blake2b224Hash(w.paymentKey.Public().(ed25519.PublicKey)).Bytes(),
		w.StakeKeyHash().Bytes(),
	)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// SignTx adds a vkey witness from the stake key, plus one from the payment
// key when partialSign is false and the keys differ. The body bytes are kept
// as supplied
func (w *KeyWallet) SignTx(
	ctx context.Context,
	txHex string,
	partialSign bool,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tx, err := ledger.NewTransactionFromHex(txHex)
	if err != nil {
		return "", err
	}
	txHash := tx.Hash()
	keys := []ed25519.PrivateKey{w.stakeKey}
	if !partialSign && !w.paymentKey.Equal(w.stakeKey) {
		keys = append(keys, w.paymentKey)
	}
	witnesses := make([]ledger.VkeyWitness, 0, len(keys))
	for _, key := range keys {
		witnesses = append(
			witnesses,
			ledger.NewVkeyWitness(
				key.Public().(ed25519.PublicKey),
				ed25519.Sign(key, txHash.Bytes()),
			),
		)
	}
	signed, err := tx.AddVkeyWitnesses(witnesses...)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(signed), nil
}

func (w *KeyWallet) Collateral(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.collateral, nil
}
