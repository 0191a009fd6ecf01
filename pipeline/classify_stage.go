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
	"errors"
)

// ErrNotDecoded is returned by stages that run before the transaction was decoded
var ErrNotDecoded = errors.New("pipeline: transaction not decoded")

// ClassifyStage computes the base validation state and extracts votes.
type ClassifyStage struct {
	opts    ProcessOptions
	metrics *PipelineMetrics
}

func NewClassifyStage(opts ProcessOptions, metrics *PipelineMetrics) *ClassifyStage {
	return &ClassifyStage{
		opts:    opts,
		metrics: metrics,
	}
}

func (s *ClassifyStage) Name() string {
	return StageClassify
}

func (s *ClassifyStage) Process(ctx context.Context, item *TxItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := item.Transaction()
	if tx == nil {
		return ErrNotDecoded
	}
	body, err := tx.RequireBody()
	if err != nil {
		return err
	}
	opts := s.opts
	if item.selectedMember != nil {
		opts.SelectedMember = *item.selectedMember
	}
	result, err := classify(body, tx, opts)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordKind(result.Kind)
	}
	item.SetResult(result)
	return nil
}

// AnchorStage checks the metadata anchors of every extracted vote.
type AnchorStage struct {
	opts    ProcessOptions
	metrics *PipelineMetrics
}

func NewAnchorStage(opts ProcessOptions, metrics *PipelineMetrics) *AnchorStage {
	return &AnchorStage{
		opts:    opts,
		metrics: metrics,
	}
}

func (s *AnchorStage) Name() string {
	return StageAnchors
}

func (s *AnchorStage) Process(ctx context.Context, item *TxItem) error {
	result := item.Result()
	if result == nil {
		return ErrNotDecoded
	}
	return checkAnchors(ctx, result, s.opts, s.metrics)
}
