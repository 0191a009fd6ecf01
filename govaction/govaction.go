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

// Package govaction converts governance action IDs to and from the CIP-129
// bech32 form and builds explorer links for them.
package govaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// Prefix is the CIP-129 human readable part for governance action IDs
	Prefix = "gov_action"

	// A transaction hash followed by a single index byte
	payloadSize = ledger.Blake2b256Size + 1

	explorerMainnet = "https://cardanoscan.io/"
	explorerPreprod = "https://preprod.cardanoscan.io/"
)

var (
	ErrInvalidPrefix  = errors.New("invalid governance action ID prefix")
	ErrInvalidPayload = errors.New("invalid governance action ID payload")
)

// Encode returns the CIP-129 ID for a transaction hash and action index.
// Only the low byte of the index is encoded, so indexes above 255 are
// truncated.
func Encode(txHash ledger.Blake2b256, index uint32) (string, error) {
	payload := make([]byte, 0, payloadSize)
	payload = append(payload, txHash.Bytes()...)
	payload = append(payload, byte(index)) // #nosec G115
	convData, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert governance action ID: %w", err)
	}
	return bech32.Encode(Prefix, convData)
}

// FromHex is Encode for a hex transaction hash
func FromHex(txHashHex string, index uint32) (string, error) {
	txHash, err := ledger.NewBlake2b256FromHex(txHashHex)
	if err != nil {
		return "", fmt.Errorf("invalid transaction hash: %w", err)
	}
	return Encode(txHash, index)
}

// FromActionId encodes a decoded governance action ID
func FromActionId(id ledger.GovActionId) (string, error) {
	return Encode(id.TransactionId, id.GovActionIdx)
}

// Decode parses a CIP-129 governance action ID
func Decode(id string) (ledger.GovActionId, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.TrimSpace(id))
	if err != nil {
		return ledger.GovActionId{}, err
	}
	if hrp != Prefix {
		return ledger.GovActionId{}, fmt.Errorf("%w: %s", ErrInvalidPrefix, hrp)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return ledger.GovActionId{}, err
	}
	if len(payload) != payloadSize {
		return ledger.GovActionId{}, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidPayload,
			payloadSize,
			len(payload),
		)
	}
	return ledger.GovActionId{
		TransactionId: ledger.NewBlake2b256(payload[:ledger.Blake2b256Size]),
		GovActionIdx:  uint32(payload[ledger.Blake2b256Size]),
	}, nil
}

// ExplorerURL returns a CardanoScan link for a bech32 address or governance
// action ID. Network 0 links to preprod, anything else to mainnet. Unknown
// identifier kinds return an empty string
func ExplorerURL(id string, networkId uint) string {
	base := explorerMainnet
	if networkId == ledger.AddressNetworkTestnet {
		base = explorerPreprod
	}
	switch {
	case strings.HasPrefix(id, "addr"):
		return base + "address/" + id
	case strings.HasPrefix(id, Prefix):
		return base + "govAction/" + id
	}
	return ""
}
