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

package committee_test

import (
	"strings"
	"testing"

	"github.com/blinklabs-io/vote-inspector/committee"
	"github.com/blinklabs-io/vote-inspector/internal/test"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bech32Raw(t *testing.T, prefix string, payload []byte) string {
	t.Helper()
	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	require.NoError(t, err)
	ret, err := bech32.Encode(prefix, conv)
	require.NoError(t, err)
	return ret
}

func TestDecodeCredential(t *testing.T) {
	hash := ledger.NewBlake2b224(test.RepeatByte(0xab, 28))
	testDefs := []struct {
		name   string
		input  string
		script bool
	}{
		{"hex", hash.String(), false},
		{"cip129 script", committee.EncodeHotCredential(hash, true), true},
		{"cip129 key", committee.EncodeHotCredential(hash, false), false},
		{"cip105 key", bech32Raw(t, committee.PrefixHot, hash.Bytes()), false},
		{"cip105 script", bech32Raw(t, committee.PrefixHotScript, hash.Bytes()), true},
		{"cip105 cold vkh", bech32Raw(t, committee.PrefixColdVkeyHash, hash.Bytes()), false},
		{"cip129 cold script", bech32Raw(t, committee.PrefixCold, append([]byte{0x13}, hash.Bytes()...)), true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			cred, err := committee.DecodeCredential(testDef.input)
			require.NoError(t, err)
			assert.Equal(t, hash, cred.Hash)
			assert.Equal(t, testDef.script, cred.Script)
		})
	}
}

func TestDecodeCredentialErrors(t *testing.T) {
	hash := test.RepeatByte(0x01, 28)
	testDefs := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"placeholder", committee.DefaultMembers()[3].HotCredential},
		{"wrong prefix", bech32Raw(t, "drep", hash)},
		{"short payload", bech32Raw(t, committee.PrefixHot, hash[:20])},
		{"bad header", bech32Raw(t, committee.PrefixHot, append([]byte{0x22}, hash...))},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := committee.DecodeCredential(testDef.input)
			assert.ErrorIs(t, err, committee.ErrInvalidCredential)
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := committee.NewRegistry(nil)
	members := reg.Members()
	require.Len(t, members, 7)
	assert.Equal(t, "Atlantic Council", members[0].Name)
	// Returned slice is a copy
	members[0].Name = "changed"
	assert.Equal(t, "Atlantic Council", reg.Members()[0].Name)

	member, ok := reg.ByName("japan council")
	require.True(t, ok)
	assert.Equal(t, "cc2", member.ID)

	member, ok = reg.ByID("cc7")
	require.True(t, ok)
	assert.Equal(t, "Ace Alliance", member.Name)

	member, ok = reg.ByHotCredential(members[2].HotCredential)
	require.True(t, ok)
	assert.Equal(t, "cc3", member.ID)

	_, ok = reg.ByName("nobody")
	assert.False(t, ok)
}

func TestRegistryByHotCredentialHex(t *testing.T) {
	hash := ledger.NewBlake2b224(test.RepeatByte(0x42, 28))
	reg := committee.NewRegistry([]committee.Member{
		{ID: "x1", Name: "Broken", HotCredential: "cc_hot1aaaa"},
		{ID: "x2", Name: "Test", HotCredential: committee.EncodeHotCredential(hash, true)},
	})
	member, ok := reg.ByHotCredential(hash.String())
	require.True(t, ok)
	assert.Equal(t, "x2", member.ID)
	_, ok = reg.ByHotCredential(ledger.NewBlake2b224(nil).String())
	assert.False(t, ok)
}

func TestAllowList(t *testing.T) {
	hash := ledger.NewBlake2b224(test.RepeatByte(0x07, 28))
	allowList, err := committee.ParseAllowList(map[string]string{
		"preprod": committee.EncodeHotCredential(hash, true),
		"1":       hash.String(),
	})
	require.NoError(t, err)
	assert.True(t, allowList.Allows(0, hash.String()))
	assert.True(t, allowList.Allows(1, strings.ToUpper(hash.String())))
	assert.False(t, allowList.Allows(0, ledger.NewBlake2b224(nil).String()))
	assert.False(t, committee.AllowList{}.Allows(1, hash.String()))

	_, err = committee.ParseAllowList(map[string]string{"moon": hash.String()})
	assert.Error(t, err)
	_, err = committee.ParseAllowList(map[string]string{"0": "nothex"})
	assert.ErrorIs(t, err, committee.ErrInvalidCredential)
}
