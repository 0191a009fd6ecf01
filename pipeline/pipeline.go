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
	"log/slog"
	"sync/atomic"
	"time"
)

// Pipeline runs the inspection stages over transaction items. It is itself a
// Stage, so it can be handed to a StageWorkerPool for batch processing.
type Pipeline struct {
	config  PipelineConfig
	stages  []Stage
	metrics *PipelineMetrics
	logger  *slog.Logger

	sequenceCounter atomic.Uint64
}

// New creates a new Pipeline using functional options.
//
// Example:
//
//	p := New(
//	    WithSelectedMember(hotCred),
//	    WithWalletFunc(func() wallet.Wallet { return w }),
//	)
func New(opts ...PipelineOption) *Pipeline {
	config := DefaultPipelineConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.applyDefaults()
	metrics := NewPipelineMetrics(config.Registerer)
	processOpts := config.processOptions()
	return &Pipeline{
		config:  config,
		metrics: metrics,
		logger:  config.Logger.With("component", "pipeline"),
		stages: []Stage{
			NewDecodeStage(),
			NewClassifyStage(processOpts, metrics),
			NewAnchorStage(processOpts, metrics),
			NewWalletStage(config.WalletFunc, processOpts),
		},
	}
}

// Name returns the stage name.
func (p *Pipeline) Name() string {
	return StagePipeline
}

// NewItem creates an item with the next sequence number.
func (p *Pipeline) NewItem(txHex string, opts ...ItemOption) *TxItem {
	p.metrics.RecordSubmit()
	return NewTxItem(txHex, p.sequenceCounter.Add(1)-1, opts...)
}

// Process runs every stage over item in order and stops at the first error,
// which is also stored on the item.
func (p *Pipeline) Process(ctx context.Context, item *TxItem) error {
	var err error
	for _, stage := range p.stages {
		start := time.Now()
		err = stage.Process(ctx, item)
		duration := time.Since(start)
		item.SetStageDuration(stage.Name(), duration)
		if !errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {
			p.metrics.RecordStage(stage.Name(), duration, err)
		}
		if err != nil {
			p.logger.Debug(
				"stage failed",
				"stage", stage.Name(),
				"sequence", item.SequenceNumber(),
				"error", err,
			)
			break
		}
	}
	item.SetErr(err)
	item.SetStageDuration(p.Name(), item.TotalDuration())
	p.metrics.RecordComplete(err)
	return err
}

// Check processes a single transaction hex.
func (p *Pipeline) Check(ctx context.Context, txHex string, opts ...ItemOption) *TxItem {
	item := p.NewItem(txHex, opts...)
	_ = p.Process(ctx, item)
	return item
}

// ProcessAll inspects a batch of transactions on the configured number of
// workers. The returned items are in submission order. Items that were not
// reached before ctx was cancelled carry the context error.
func (p *Pipeline) ProcessAll(ctx context.Context, txHexes []string) []*TxItem {
	items := make([]*TxItem, 0, len(txHexes))
	for _, txHex := range txHexes {
		items = append(items, p.NewItem(txHex))
	}
	if len(items) == 0 {
		return items
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	input := make(chan *TxItem)
	output := make(chan *TxItem, len(items))
	pool := NewStageWorkerPool(StageWorkerPoolConfig{
		Stage:      p,
		NumWorkers: min(p.config.Workers, len(items)),
		Input:      input,
		Output:     output,
		// Time from submission, queueing included
		RecordMetrics: StageMetricsRecorder(p.metrics, p.Name()),
		ShouldRecord:  RecordIfDecoded,
	})
	pool.Start(ctx)

	go func() {
		defer close(input)
		for _, item := range items {
			select {
			case input <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(map[uint64]struct{}, len(items))
	for len(done) < len(items) {
		select {
		case item := <-output:
			done[item.SequenceNumber()] = struct{}{}
		case <-ctx.Done():
			pool.Stop()
			for _, item := range items {
				// Never reached a worker
				if item.Err() == nil && item.Result() == nil {
					item.SetErr(ctx.Err())
				}
			}
			return items
		}
	}
	pool.Stop()
	return items
}

// Metrics returns the pipeline metrics.
func (p *Pipeline) Metrics() *PipelineMetrics {
	return p.metrics
}

// Stats returns the current pipeline statistics.
func (p *Pipeline) Stats() PipelineStats {
	return p.metrics.Stats()
}
