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

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blinklabs-io/vote-inspector/internal/test"
	test_ledger "github.com/blinklabs-io/vote-inspector/internal/test/ledger"
	"github.com/blinklabs-io/vote-inspector/ledger"
	"github.com/blinklabs-io/vote-inspector/signing"
	"github.com/blinklabs-io/vote-inspector/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	testStakeKey  = test_ledger.NewKey(0x42)
	testStakeHash = test_ledger.KeyHash(testStakeKey)
)

// signableFixture is a preprod transaction that passes every check for the
// test stake key
func signableFixture() test_ledger.TxFixture {
	datum := append([]byte{0xd8, 0x79, 0x9f, 0x58, 0x1c}, testStakeHash.Bytes()...)
	datum = append(datum, 0xff)
	return test_ledger.TxFixture{
		Outputs: []test_ledger.OutputFixture{
			{
				Address: test_ledger.BaseAddress(
					0,
					ledger.NewBlake2b224(test.RepeatByte(0xaa, 28)),
					testStakeHash,
				),
				Amount:      2_000_000,
				InlineDatum: datum,
			},
		},
		RequiredSigners: []ledger.Blake2b224{testStakeHash},
	}
}

func writeTestFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vote-inspector.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("network: preprod\n"), 0o600))
	env, err := wallet.NewTextEnvelope("StakeSigningKeyShelley_ed25519", testStakeKey)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	keyPath := filepath.Join(dir, "stake.skey")
	require.NoError(t, os.WriteFile(keyPath, data, 0o600))
	return cfgPath, keyPath
}

func runCommand(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd := newRootCommand()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGovIDCommands(t *testing.T) {
	cfgPath, _ := writeTestFiles(t)
	txHash := strings.Repeat("dd", 32)
	out, err := runCommand(t, cfgPath, "gov-id", "encode", txHash, "3")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(id, "gov_action1"))

	out, err = runCommand(t, cfgPath, "gov-id", "decode", id)
	require.NoError(t, err)
	assert.Contains(t, out, txHash+"#3")
	assert.Contains(t, out, "https://preprod.cardanoscan.io/govAction/"+id)

	_, err = runCommand(t, cfgPath, "gov-id", "encode", txHash, "x")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	cfgPath, keyPath := writeTestFiles(t)
	txHex := signableFixture().Hex()
	out, err := runCommand(t, cfgPath, "inspect", "--json", "--stake-key-file", keyPath, txHex)
	require.NoError(t, err)
	var state struct {
		Kind       string `json:"kind"`
		Connected  bool   `json:"connected"`
		Validation struct {
			IsPartOfSigners      bool `json:"isPartOfSigners"`
			IsSameNetwork        bool `json:"isSameNetwork"`
			IsInOutputPlutusData bool `json:"isInOutputPlutusData"`
		} `json:"txValidationState"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "hierarchy", state.Kind)
	assert.True(t, state.Connected)
	assert.True(t, state.Validation.IsPartOfSigners)
	assert.True(t, state.Validation.IsSameNetwork)
	assert.True(t, state.Validation.IsInOutputPlutusData)

	// Text output with a read-only wallet from stdin
	rootCmd := newRootCommand()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetIn(strings.NewReader(txHex + "\n"))
	rootCmd.SetArgs([]string{
		"--config", cfgPath,
		"inspect", "-f", "-",
		"--stake-credential", testStakeHash.String(),
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Kind:              hierarchy")
	assert.Contains(t, buf.String(), "[ok  ] wallet is a required signer")
	assert.Contains(t, buf.String(), "Ready to sign")

	_, err = runCommand(t, cfgPath, "inspect", "zz")
	assert.Error(t, err)
	_, err = runCommand(t, cfgPath, "inspect")
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	cfgPath, keyPath := writeTestFiles(t)
	fixture := signableFixture()
	outDir := t.TempDir()

	// Signing requires acknowledgment
	_, err := runCommand(t, cfgPath, "sign", "--stake-key-file", keyPath, fixture.Hex())
	assert.ErrorIs(t, err, signing.ErrNotSignable)

	out, err := runCommand(
		t, cfgPath,
		"sign", "--ack", "--stake-key-file", keyPath, "-o", outDir, fixture.Hex(),
	)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, outDir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var artifact signing.Artifact
	require.NoError(t, json.Unmarshal(data, &artifact))
	assert.Equal(t, testStakeHash.String(), artifact.VoterKeyHash)
	expected, err := fixture.SignWitness(testStakeKey).MarshalCBOR()
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(expected), artifact.Witness)

	signedFixture := fixture
	signedFixture.Witnesses = []ledger.VkeyWitness{fixture.SignWitness(testStakeKey)}
	signedHex := signedFixture.Hex()
	out, err = runCommand(
		t, cfgPath,
		"verify-witness",
		"--signed", signedHex,
		"--unsigned", fixture.Hex(),
		"--stake-credential", testStakeHash.String(),
	)
	require.NoError(t, err)
	assert.Contains(t, out, artifact.Witness)

	_, err = runCommand(
		t, cfgPath,
		"verify-witness",
		"--signed", signedHex,
		"--unsigned", fixture.Hex(),
		"--stake-credential", strings.Repeat("00", 28),
	)
	assert.ErrorIs(t, err, signing.ErrUnexpectedVkey)
}

func TestMembersAndVersion(t *testing.T) {
	cfgPath, _ := writeTestFiles(t)
	out, err := runCommand(t, cfgPath, "members")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	out, err = runCommand(t, cfgPath, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, programName+" "))
}
