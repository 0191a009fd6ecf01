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

// Package committee holds the constitutional committee member registry and
// the per-network allow-list of committee script credentials.
package committee

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32 prefixes for committee credentials
const (
	PrefixHot          = "cc_hot"
	PrefixCold         = "cc_cold"
	PrefixHotScript    = "cc_hot_script"
	PrefixColdScript   = "cc_cold_script"
	PrefixHotVkeyHash  = "cc_hot_vkh"
	PrefixColdVkeyHash = "cc_cold_vkh"
)

// CIP-129 header byte values
const (
	headerHotKeyHash     = 0x02
	headerHotScriptHash  = 0x03
	headerColdKeyHash    = 0x12
	headerColdScriptHash = 0x13
)

var ErrInvalidCredential = errors.New("invalid committee credential")

// Credential is a decoded committee credential
type Credential struct {
	Hash   ledger.Blake2b224
	Script bool
}

// DecodeCredential accepts a CIP-129 credential (with header byte), a CIP-105
// credential (raw 28 byte hash) or a 56 character hex hash
func DecodeCredential(cred string) (Credential, error) {
	cred = strings.TrimSpace(cred)
	if len(cred) == ledger.Blake2b224Size*2 {
		if data, err := hex.DecodeString(cred); err == nil {
			return Credential{Hash: ledger.NewBlake2b224(data)}, nil
		}
	}
	hrp, data, err := bech32.DecodeNoLimit(cred)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	switch hrp {
	case PrefixHot, PrefixCold:
		switch len(payload) {
		case ledger.Blake2b224Size + 1:
			// CIP-129
			var ret Credential
			switch payload[0] {
			case headerHotKeyHash, headerColdKeyHash:
			case headerHotScriptHash, headerColdScriptHash:
				ret.Script = true
			default:
				return Credential{}, fmt.Errorf(
					"%w: unknown header byte 0x%02x",
					ErrInvalidCredential,
					payload[0],
				)
			}
			ret.Hash = ledger.NewBlake2b224(payload[1:])
			return ret, nil
		case ledger.Blake2b224Size:
			// CIP-105 key hash
			return Credential{Hash: ledger.NewBlake2b224(payload)}, nil
		}
	case PrefixHotScript, PrefixColdScript:
		if len(payload) == ledger.Blake2b224Size {
			return Credential{
				Hash:   ledger.NewBlake2b224(payload),
				Script: true,
			}, nil
		}
	case PrefixHotVkeyHash, PrefixColdVkeyHash:
		if len(payload) == ledger.Blake2b224Size {
			return Credential{Hash: ledger.NewBlake2b224(payload)}, nil
		}
	default:
		return Credential{}, fmt.Errorf(
			"%w: unexpected prefix %q",
			ErrInvalidCredential,
			hrp,
		)
	}
	return Credential{}, fmt.Errorf(
		"%w: unexpected payload length %d",
		ErrInvalidCredential,
		len(payload),
	)
}

// EncodeHotCredential returns the CIP-129 cc_hot form of a hash
func EncodeHotCredential(hash ledger.Blake2b224, script bool) string {
	header := byte(headerHotKeyHash)
	if script {
		header = headerHotScriptHash
	}
	payload := append([]byte{header}, hash.Bytes()...)
	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return ""
	}
	ret, err := bech32.Encode(PrefixHot, conv)
	if err != nil {
		return ""
	}
	return ret
}

// Member is a constitutional committee member
type Member struct {
	ID             string `yaml:"id"             json:"id"`
	Name           string `yaml:"name"           json:"name"`
	ColdCredential string `yaml:"coldCredential" json:"coldCredential"`
	HotCredential  string `yaml:"hotCredential"  json:"hotCredential"`
}

// HotCredentialHash decodes the member hot credential
func (m Member) HotCredentialHash() (Credential, error) {
	return DecodeCredential(m.HotCredential)
}

// Registry is a fixed set of committee members
type Registry struct {
	members []Member
}

// NewRegistry returns a registry over the provided members, or the default
// members if none are provided
func NewRegistry(members []Member) *Registry {
	if len(members) == 0 {
		members = DefaultMembers()
	}
	return &Registry{members: slices.Clone(members)}
}

func (r *Registry) Members() []Member {
	return slices.Clone(r.members)
}

func (r *Registry) ByID(id string) (Member, bool) {
	for _, m := range r.members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

func (r *Registry) ByName(name string) (Member, bool) {
	for _, m := range r.members {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Member{}, false
}

// ByHotCredential finds a member by hot credential in any supported encoding
func (r *Registry) ByHotCredential(cred string) (Member, bool) {
	for _, m := range r.members {
		if m.HotCredential == cred {
			return m, true
		}
	}
	wanted, err := DecodeCredential(cred)
	if err != nil {
		return Member{}, false
	}
	for _, m := range r.members {
		memberCred, err := m.HotCredentialHash()
		if err != nil {
			continue
		}
		if memberCred.Hash == wanted.Hash {
			return m, true
		}
	}
	return Member{}, false
}

// DefaultMembers returns the built-in committee member list
func DefaultMembers() []Member {
	return []Member{
		{
			ID:             "cc1",
			Name:           "Atlantic Council",
			ColdCredential: "cc_cold1z00saqaaue2pdkk7tv0e0el3zhxpl7ve259dj6y9q7plu5qwvxfy9",
			HotCredential:  "cc_hot1qvr7p6ms588athsgfd0uez5m9rlhwu3g9dt7wcxkjtr4hhsq6ytv2",
		},
		{
			ID:             "cc2",
			Name:           "Japan Council",
			ColdCredential: "cc_cold1z00saqaaue2pdkk7tv0e0el3zhxpl7ve259dj6y9q7plu5qwvxfy8",
			HotCredential:  "cc_hot1qv7fa08xua5s7qscy9zct3asaa5a3hvtdc8sxexetcv3unq7cfkq4",
		},
		{
			ID:             "cc3",
			Name:           "Eastern Council",
			ColdCredential: "cc_cold1z00saqaaue2pdkk7tv0e0el3zhxpl7ve259dj6y9q7plu5qwvxfy3",
			HotCredential:  "cc_hot1qvh20fuwhy2dnz9e6d5wmzysduaunlz5y9n8m6n2xen3pmqqvyw8v",
		},
		{
			ID:             "cc4",
			Name:           "Ktorz",
			ColdCredential: "cc_cold1z00saqaaue2pdkk7tv0e0el3zhxpl7ve259dj6y9q7plu5qwvxfy6",
			HotCredential:  "cc_hot1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
		{
			ID:             "cc5",
			Name:           "Phil_uplc",
			ColdCredential: "cc_cold1z00saqaaue2pdkk7tv0e0el3zhxpl7ve259dj6y9q7plu5qwvxfy5",
			HotCredential:  "cc_hot1bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		},
		{
			ID:             "cc6",
			Name:           "Tingvard",
			ColdCredential: "cc_cold1z00saqaaue2pdkk7tv0e0el3zhxpl7ve259dj6y9q7plu5qwvxfy5",
			HotCredential:  "cc_hot1ccccccccccccccccccccccccccccccccccccccccccccccccccccc",
		},
		{
			ID:             "cc7",
			Name:           "Ace Alliance",
			ColdCredential: "cc_cold1z00saqaaue2pdkk7tv0e0el3zhxpl7ve259dj6y9q7plu5qwvxfy5",
			HotCredential:  "cc_hot1ddddddddddddddddddddddddddddddddddddddddddddddddddddd",
		},
	}
}

// AllowList maps a network ID to the committee script hash (hex) allowed to
// vote on that network
type AllowList map[uint]string

// ParseAllowList builds an AllowList from configuration, where keys are a
// network ID ("0", "1") or name ("preprod", "mainnet")
func ParseAllowList(entries map[string]string) (AllowList, error) {
	ret := make(AllowList, len(entries))
	for key, value := range entries {
		var networkId uint
		switch strings.ToLower(key) {
		case "mainnet":
			networkId = ledger.AddressNetworkMainnet
		case "preprod", "preview", "testnet":
			networkId = ledger.AddressNetworkTestnet
		default:
			tmpId, err := strconv.ParseUint(key, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid allow-list network %q: %w", key, err)
			}
			networkId = uint(tmpId)
		}
		cred, err := DecodeCredential(value)
		if err != nil {
			return nil, fmt.Errorf("invalid allow-list entry for %q: %w", key, err)
		}
		ret[networkId] = cred.Hash.String()
	}
	return ret, nil
}

// Allows reports whether the script hash (hex, any case) is the allowed
// credential for the network
func (a AllowList) Allows(networkId uint, scriptHashHex string) bool {
	allowed, ok := a[networkId]
	if !ok || allowed == "" {
		return false
	}
	return strings.EqualFold(allowed, scriptHashHex)
}
