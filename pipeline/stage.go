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

// Package pipeline provides the transaction inspection pipeline: decoding,
// vote extraction, metadata anchor checks and wallet-context validation.
package pipeline

import (
	"context"
	"time"
)

// Stage names
const (
	StageDecode   = "decode"
	StageClassify = "classify"
	StageAnchors  = "anchors"
	StageWallet   = "wallet"
	// StagePipeline is a full pass over every stage
	StagePipeline = "pipeline"
)

// Stage represents a processing stage in the inspection pipeline.
type Stage interface {
	// Name returns the name of the stage for logging and metrics.
	Name() string
	// Process processes a single transaction item. Returns an error if processing fails.
	Process(ctx context.Context, item *TxItem) error
}

// PipelineStats contains statistics about pipeline activity.
type PipelineStats struct {
	// TxSubmitted is the total number of transactions submitted to the pipeline.
	TxSubmitted uint64
	// TxProcessed is the total number of transactions that passed every stage.
	TxProcessed uint64
	// TxFailed is the total number of transactions stopped by a stage error.
	TxFailed uint64
	// DecodeErrors is the total number of decode errors.
	DecodeErrors uint64
	// VoteTransactions is the number of transactions classified as votes.
	VoteTransactions uint64
	// HierarchyTransactions is the number of transactions without votes.
	HierarchyTransactions uint64
	// VotesExtracted is the total number of votes extracted.
	VotesExtracted uint64
	// AnchorChecks is the total number of metadata anchor checks.
	AnchorChecks uint64
	// AnchorFailures is the number of anchor checks that did not match.
	AnchorFailures uint64
	// WalletErrors is the number of failed wallet calls.
	WalletErrors uint64
	// StaleResults is the number of results discarded by the generation guard.
	StaleResults uint64

	// LastTxTime is the time the last transaction was processed.
	LastTxTime time.Time
	// StartTime is when the metrics were created or reset.
	StartTime time.Time
}
