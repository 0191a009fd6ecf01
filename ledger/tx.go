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
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/vote-inspector/cbor"
)

// Transaction body map keys
const (
	TxBodyKeyInputs           = 0
	TxBodyKeyOutputs          = 1
	TxBodyKeyFee              = 2
	TxBodyKeyTtl              = 3
	TxBodyKeyCertificates     = 4
	TxBodyKeyRequiredSigners  = 14
	TxBodyKeyNetworkId        = 15
	TxBodyKeyVotingProcedures = 19
)

// Conway transactions are [body, witness_set, is_valid, auxiliary_data]
const transactionItemCount = 4

type TransactionInput struct {
	cbor.StructAsArray
	TxId        Blake2b256
	OutputIndex uint32
}

func (i TransactionInput) String() string {
	return fmt.Sprintf("%s#%d", i.TxId.String(), i.OutputIndex)
}

func (i TransactionInput) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}

// TransactionBody is a Conway transaction body. Only the fields needed for
// inspection are decoded, any other keys are accepted and ignored
type TransactionBody struct {
	cbor.DecodeStoreCbor
	TxInputs           []TransactionInput
	TxOutputs          []TransactionOutput
	TxFee              uint64
	Ttl                uint64
	TxCertificates     []cbor.RawMessage
	TxRequiredSigners  []Blake2b224
	TxNetworkId        *uint8
	TxVotingProcedures *VotingProcedures
	hasCertificates    bool
}

func (b *TransactionBody) UnmarshalCBOR(cborData []byte) error {
	b.SetCbor(cborData)
	entries, err := cbor.DecodeMapEntries(cborData)
	if err != nil {
		return fmt.Errorf("decode transaction body: %w", err)
	}
	for _, entry := range entries {
		var key uint64
		if err := cbor.DecodeExact(entry.Key, &key); err != nil {
			return fmt.Errorf("invalid transaction body key: %w", err)
		}
		var dest any
		switch key {
		case TxBodyKeyInputs:
			dest = &b.TxInputs
		case TxBodyKeyOutputs:
			dest = &b.TxOutputs
		case TxBodyKeyFee:
			dest = &b.TxFee
		case TxBodyKeyTtl:
			dest = &b.Ttl
		case TxBodyKeyCertificates:
			b.hasCertificates = true
			dest = &b.TxCertificates
		case TxBodyKeyRequiredSigners:
			dest = &b.TxRequiredSigners
		case TxBodyKeyNetworkId:
			b.TxNetworkId = new(uint8)
			dest = b.TxNetworkId
		case TxBodyKeyVotingProcedures:
			b.TxVotingProcedures = &VotingProcedures{}
			dest = b.TxVotingProcedures
		default:
			continue
		}
		if err := cbor.DecodeExact(entry.Value, dest); err != nil {
			return fmt.Errorf("decode transaction body key %d: %w", key, err)
		}
	}
	return nil
}

func (b *TransactionBody) MarshalCBOR() ([]byte, error) {
	return b.Cbor(), nil
}

func (b *TransactionBody) Hash() Blake2b256 {
	return Blake2b256Hash(b.Cbor())
}

func (b *TransactionBody) Inputs() []TransactionInput {
	return b.TxInputs
}

func (b *TransactionBody) Outputs() []TransactionOutput {
	return b.TxOutputs
}

func (b *TransactionBody) Fee() uint64 {
	return b.TxFee
}

func (b *TransactionBody) RequiredSigners() []Blake2b224 {
	return b.TxRequiredSigners
}

// HasCertificates reports whether the certificates key is present, even if
// the list it holds is empty
func (b *TransactionBody) HasCertificates() bool {
	return b.hasCertificates
}

func (b *TransactionBody) VotingProcedures() *VotingProcedures {
	return b.TxVotingProcedures
}

type Transaction struct {
	cbor.DecodeStoreCbor
	Body       TransactionBody
	WitnessSet WitnessSet
	TxIsValid  bool
	TxMetadata *cbor.LazyValue
	rawIsValid []byte
	rawAuxData []byte
}

func (t *Transaction) UnmarshalCBOR(cborData []byte) error {
	t.SetCbor(cborData)
	d, err := cbor.NewStreamDecoder(cborData)
	if err != nil {
		return err
	}
	count, err := d.DecodeArrayHeader()
	if err != nil {
		return fmt.Errorf("transaction is not a list: %w", err)
	}
	if count != transactionItemCount {
		return fmt.Errorf(
			"transaction has %d items, expected %d",
			count,
			transactionItemCount,
		)
	}
	if _, _, err := d.Decode(&t.Body); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if _, _, err := d.Decode(&t.WitnessSet); err != nil {
		return fmt.Errorf("decode witness set: %w", err)
	}
	rawIsValid, err := d.DecodeRaw(&t.TxIsValid)
	if err != nil {
		return fmt.Errorf("decode is_valid flag: %w", err)
	}
	t.rawIsValid = bytes.Clone(rawIsValid)
	var auxData cbor.RawMessage
	rawAuxData, err := d.DecodeRaw(&auxData)
	if err != nil {
		return fmt.Errorf("decode auxiliary data: %w", err)
	}
	t.rawAuxData = bytes.Clone(rawAuxData)
	t.TxMetadata = nil
	// CBOR null means no auxiliary data
	if !bytes.Equal(auxData, []byte{0xf6}) {
		t.TxMetadata = &cbor.LazyValue{}
		if err := t.TxMetadata.UnmarshalCBOR(auxData); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transaction) MarshalCBOR() ([]byte, error) {
	return t.Cbor(), nil
}

// Hash returns the Blake2b-256 hash of the original body bytes
func (t *Transaction) Hash() Blake2b256 {
	return t.Body.Hash()
}

func (t *Transaction) Hex() string {
	return hex.EncodeToString(t.Cbor())
}

// RequireBody returns the transaction body, or ErrTransactionBodyNull if the
// body has no outputs
func (t *Transaction) RequireBody() (*TransactionBody, error) {
	if t == nil || len(t.Body.TxOutputs) == 0 {
		return nil, ErrTransactionBodyNull
	}
	return &t.Body, nil
}

// AddVkeyWitnesses returns the CBOR for a copy of the transaction with the
// provided vkey witnesses added. The original body bytes are kept so the
// transaction hash does not change
func (t *Transaction) AddVkeyWitnesses(witnesses ...VkeyWitness) ([]byte, error) {
	newWitnessSet, err := t.WitnessSet.WithVkeyWitnesses(witnesses...)
	if err != nil {
		return nil, err
	}
	witnessCbor, err := newWitnessSet.encode()
	if err != nil {
		return nil, err
	}
	ret := cbor.AppendArrayHeader(nil, transactionItemCount)
	ret = append(ret, t.Body.Cbor()...)
	ret = append(ret, witnessCbor...)
	ret = append(ret, t.rawIsValid...)
	ret = append(ret, t.rawAuxData...)
	return ret, nil
}

// NewTransactionFromCbor decodes a Conway transaction from CBOR
func NewTransactionFromCbor(data []byte) (*Transaction, error) {
	if len(data) == 0 {
		return nil, DecodeError{Err: ErrEmptyTransaction}
	}
	var tx Transaction
	if err := cbor.DecodeExact(data, &tx); err != nil {
		return nil, DecodeError{Err: err}
	}
	return &tx, nil
}

// NewTransactionFromHex decodes a Conway transaction from hex-encoded CBOR.
// Surrounding whitespace is ignored
func NewTransactionFromHex(txHex string) (*Transaction, error) {
	txHex = strings.TrimSpace(txHex)
	if txHex == "" {
		return nil, DecodeError{Err: ErrEmptyTransaction}
	}
	data, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, DecodeError{Err: err}
	}
	return NewTransactionFromCbor(data)
}

// DecodeTransactionHex decodes a transaction from arbitrary input. It never
// panics and returns nil for any input that is not a valid transaction
func DecodeTransactionHex(txHex string, logger *slog.Logger) (tx *Transaction) {
	if logger == nil {
		logger = slog.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn(
				"recovered from panic while decoding transaction",
				"panic", fmt.Sprint(r),
			)
			tx = nil
		}
	}()
	tmpTx, err := NewTransactionFromHex(txHex)
	if err != nil {
		if errors.Is(err, ErrEmptyTransaction) {
			logger.Debug("no transaction to decode")
		} else {
			logger.Warn("failed to decode transaction", "error", err)
		}
		return nil
	}
	return tmpTx
}

// ComputeHash re-parses the transaction hex and returns the hex of its body
// hash, or an empty string on failure
func ComputeHash(txHex string) string {
	tx := DecodeTransactionHex(txHex, slog.Default())
	if tx == nil {
		return ""
	}
	return tx.Hash().String()
}
