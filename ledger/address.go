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

package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/blinklabs-io/vote-inspector/cbor"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	AddressHeaderTypeMask    = 0xF0
	AddressHeaderNetworkMask = 0x0F
	AddressHashSize          = 28

	AddressNetworkTestnet = 0
	AddressNetworkMainnet = 1

	AddressTypeKeyKey        = 0b0000
	AddressTypeScriptKey     = 0b0001
	AddressTypeKeyScript     = 0b0010
	AddressTypeScriptScript  = 0b0011
	AddressTypeKeyPointer    = 0b0100
	AddressTypeScriptPointer = 0b0101
	AddressTypeKeyNone       = 0b0110
	AddressTypeScriptNone    = 0b0111
	AddressTypeByron         = 0b1000
	AddressTypeNoneKey       = 0b1110
	AddressTypeNoneScript    = 0b1111
)

// Address is a decoded Shelley-era (or opaque Byron) address
type Address struct {
	addressType    uint8
	networkId      uint8
	paymentPayload []byte
	stakingPayload []byte
	// Pointer payloads and any trailing junk bytes are kept verbatim
	extraData []byte
	byronData []byte
}

// NewAddress returns an Address based on the provided bech32/base58 address string
// It detects if the string has mixed case assumes it is a base58 encoded address
// otherwise, it assumes it is bech32 encoded
func NewAddress(addr string) (Address, error) {
	var decoded []byte
	if strings.ToLower(addr) != addr {
		// Mixed case detected: Assume Base58 encoding (e.g., Byron addresses)
		decoded = base58.Decode(addr)
		if len(decoded) == 0 {
			return Address{}, errors.New("invalid base58 address")
		}
	} else {
		_, data, err := bech32.DecodeNoLimit(addr)
		if err != nil {
			return Address{}, err
		}
		decoded, err = bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return Address{}, err
		}
	}
	return NewAddressFromBytes(decoded)
}

// NewAddressFromBytes returns an Address based on the raw bytes provided
func NewAddressFromBytes(addrBytes []byte) (Address, error) {
	var ret Address
	if err := ret.populateFromBytes(addrBytes); err != nil {
		return Address{}, err
	}
	return ret, nil
}

// NewAddressFromParts returns an Address based on the individual parts of the address that are provided
func NewAddressFromParts(
	addrType uint8,
	networkId uint8,
	paymentAddr []byte,
	stakingAddr []byte,
) (Address, error) {
	// Validate network ID
	if networkId != AddressNetworkTestnet &&
		networkId != AddressNetworkMainnet {
		return Address{}, errors.New("invalid network ID")
	}
	header := (addrType << 4) | (networkId & AddressHeaderNetworkMask)
	buf := make([]byte, 0, 1+len(paymentAddr)+len(stakingAddr))
	buf = append(buf, header)
	buf = append(buf, paymentAddr...)
	buf = append(buf, stakingAddr...)
	return NewAddressFromBytes(buf)
}

func (a *Address) populateFromBytes(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty address data")
	}
	// Extract header info
	header := data[0]
	a.addressType = (header & AddressHeaderTypeMask) >> 4
	a.networkId = header & AddressHeaderNetworkMask
	// Byron Addresses
	if a.addressType == AddressTypeByron {
		return a.populateByron(data)
	}
	// Payment payload
	payload := data[1:]
	switch a.addressType {
	case AddressTypeKeyKey, AddressTypeKeyScript, AddressTypeKeyPointer, AddressTypeKeyNone,
		AddressTypeScriptKey, AddressTypeScriptScript, AddressTypeScriptPointer, AddressTypeScriptNone:
		if len(payload) < AddressHashSize {
			return errors.New("invalid payment payload: hash too small")
		}
		a.paymentPayload = payload[0:AddressHashSize]
		payload = payload[AddressHashSize:]
	case AddressTypeNoneKey, AddressTypeNoneScript:
	default:
		return fmt.Errorf("unknown address type: %d", a.addressType)
	}
	// Staking payload
	switch a.addressType {
	case AddressTypeKeyKey, AddressTypeScriptKey, AddressTypeNoneKey,
		AddressTypeKeyScript, AddressTypeScriptScript, AddressTypeNoneScript:
		if len(payload) < AddressHashSize {
			return errors.New("invalid staking payload: hash too small")
		}
		a.stakingPayload = payload[0:AddressHashSize]
		payload = payload[AddressHashSize:]
	}
	// Store any extra address data
	// This is needed to handle the case describe in:
	// https://github.com/IntersectMBO/cardano-ledger/issues/2729
	if len(payload) > 0 {
		a.extraData = payload[:]
	}
	return nil
}

func (a *Address) populateByron(data []byte) error {
	var rawAddr struct {
		cbor.StructAsArray
		Payload  cbor.RawTag
		Checksum uint32
	}
	if _, err := cbor.Decode(data, &rawAddr); err != nil {
		return err
	}
	var payloadBytes []byte
	if _, err := cbor.Decode(rawAddr.Payload.Content, &payloadBytes); err != nil ||
		rawAddr.Payload.Number != cbor.CborTagCbor {
		return errors.New(
			"invalid Byron address data: unexpected payload content",
		)
	}
	if crc32.ChecksumIEEE(payloadBytes) != rawAddr.Checksum {
		return errors.New(
			"invalid Byron address data: checksum does not match",
		)
	}
	a.byronData = bytes.Clone(data)
	return nil
}

func (a *Address) UnmarshalCBOR(data []byte) error {
	// Try to unwrap as bytestring (Shelley and forward)
	tmpData := []byte{}
	if _, err := cbor.Decode(data, &tmpData); err == nil {
		return a.populateFromBytes(tmpData)
	}
	// Probably a Byron address
	return a.populateFromBytes(data)
}

func (a Address) MarshalCBOR() ([]byte, error) {
	if a.addressType == AddressTypeByron {
		return a.byronData, nil
	}
	return cbor.Encode(a.Bytes())
}

// NetworkId returns the network ID from the address header. Byron addresses
// always report mainnet
func (a Address) NetworkId() uint {
	if a.addressType == AddressTypeByron {
		return AddressNetworkMainnet
	}
	return uint(a.networkId)
}

func (a Address) Type() uint8 {
	return a.addressType
}

// PaymentKeyHash returns the payment credential hash, or a zero hash when the
// address has no payment part
func (a Address) PaymentKeyHash() Blake2b224 {
	return NewBlake2b224(a.paymentPayload)
}

// StakeKeyHash returns the staking credential hash, or a zero hash when the
// address has no (non-pointer) staking part
func (a Address) StakeKeyHash() Blake2b224 {
	return NewBlake2b224(a.stakingPayload)
}

// HasStakeCredential reports whether the address carries a staking key or
// script hash
func (a Address) HasStakeCredential() bool {
	return len(a.stakingPayload) == AddressHashSize
}

func (a Address) generateHRP() string {
	var ret string
	if a.addressType == AddressTypeNoneKey ||
		a.addressType == AddressTypeNoneScript {
		ret = "stake"
	} else {
		ret = "addr"
	}
	// Add test_ suffix if not mainnet
	if a.networkId != AddressNetworkMainnet {
		ret += "_test"
	}
	return ret
}

// Bytes returns the underlying bytes for the address
func (a Address) Bytes() []byte {
	if a.addressType == AddressTypeByron {
		return a.byronData
	}
	header := (a.addressType << 4) | (a.networkId & AddressHeaderNetworkMask)
	ret := []byte{header}
	ret = append(ret, a.paymentPayload...)
	ret = append(ret, a.stakingPayload...)
	ret = append(ret, a.extraData...)
	return ret
}

// String returns the bech32-encoded version of the address
func (a Address) String() string {
	if a.addressType == AddressTypeByron {
		return base58.Encode(a.byronData)
	}
	return bech32Encode(a.generateHRP(), a.Bytes())
}

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}
