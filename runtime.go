// Copyright 2025 Zintix Labs
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

package batchlab

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/batchlab/dto"
	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/spec"
)

// managedSequence 把一條 canonical 序列包上鎖。
//
// 每個資料集只有「一條」序列：批次序列的決定性是合約，不能用
// 多條不同 seed 的副本分流（那會讓同一個 idx 在不同副本回出不同內容）。
type managedSequence struct {
	mu sync.Mutex
	vs *VectorSequence
}

// BatchRuntime 是對外服務用的運行時：每個資料集一條受鎖保護的 canonical 序列。
type BatchRuntime struct {
	// build-time 來源（只讀引用）
	lab *Batchlab // 方便取 catalog/prng factory 與共用一些 helper

	// data-plane：每個資料集一條 canonical 序列
	seqs map[spec.DID]*managedSequence
	ids  []spec.DID // 固定順序，用於觀測/列舉（來自 cat.IDs()）

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	// telemetry
	batches atomic.Uint64
	epochs  atomic.Uint64
	misses  atomic.Uint64 // 批次索引越界次數（呼叫端迴圈邊界錯誤的訊號）
}

// RuntimeMetrics 是 runtime 的輕量觀測值快照。
type RuntimeMetrics struct {
	Datasets      int    `json:"datasets"`
	BatchesServed uint64 `json:"batches_served"`
	EpochsEnded   uint64 `json:"epochs_ended"`
	RangeMisses   uint64 `json:"range_misses"`
	Closed        bool   `json:"closed"`
}

// Batch 取得指定資料集當前 epoch 的第 idx 個批次。
//
// 回傳的 DTO 內容是深拷貝：呼叫端可安全保留，不受後續 epoch 邊界影響。
func (rt *BatchRuntime) Batch(ctx context.Context, req *dto.BatchRequest) (dto.BatchResult, error) {
	select {
	case <-ctx.Done():
		// 如果通知取消
		return dto.BatchResult{}, errs.NewWarn("batch canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		// done is the source of truth; keep a fast boolean for cheap reads/telemetry.
		rt.closed.Store(true)
		return dto.BatchResult{}, errs.NewFatal("batch runtime closed: " + rt.ClosedReason())
	default:
	}

	ms, ok := rt.seqs[req.DatasetID]
	if !ok {
		return dto.BatchResult{}, errs.NewWarn("dataset id not found")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	batch, err := ms.vs.Batch(req.Idx)
	if err != nil {
		if errors.Is(err, ErrBatchIndex) {
			rt.misses.Add(1)
		}
		return dto.BatchResult{}, err
	}
	values := make([]float64, len(batch))
	copy(values, batch)

	rt.batches.Add(1)
	return dto.BatchResult{
		DatasetID:     ms.vs.DID(),
		DatasetName:   ms.vs.Name(),
		Idx:           req.Idx,
		Values:        values,
		ElapsedEpochs: ms.vs.ElapsedEpochs(),
		StepsPerEpoch: ms.vs.StepsPerEpoch(),
		BatchSize:     ms.vs.BatchSize(),
		Samples:       ms.vs.SamplesNumber(),
	}, nil
}

// EpochEnd 推進指定資料集的 epoch（重建洗牌視圖），回報推進後的簿記值。
func (rt *BatchRuntime) EpochEnd(ctx context.Context, req *dto.EpochRequest) (dto.EpochResult, error) {
	select {
	case <-ctx.Done():
		return dto.EpochResult{}, errs.NewWarn("epoch end canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		rt.closed.Store(true)
		return dto.EpochResult{}, errs.NewFatal("batch runtime closed: " + rt.ClosedReason())
	default:
	}

	ms, ok := rt.seqs[req.DatasetID]
	if !ok {
		return dto.EpochResult{}, errs.NewWarn("dataset id not found")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.vs.OnEpochEnd()
	rt.epochs.Add(1)
	return dto.EpochResult{
		DatasetID:     ms.vs.DID(),
		DatasetName:   ms.vs.Name(),
		ElapsedEpochs: ms.vs.ElapsedEpochs(),
		StepsPerEpoch: ms.vs.StepsPerEpoch(),
	}, nil
}

// IDs 回傳 runtime 內資料集 ID 的固定順序列表。
func (rt *BatchRuntime) IDs() []spec.DID {
	return append([]spec.DID(nil), rt.ids...)
}

// Lab 回傳 build-time 的 Batchlab（觀測/列舉用，只讀）。
func (rt *BatchRuntime) Lab() *Batchlab {
	return rt.lab
}

// Metrics 回傳觀測值快照。
func (rt *BatchRuntime) Metrics() RuntimeMetrics {
	return RuntimeMetrics{
		Datasets:      len(rt.ids),
		BatchesServed: rt.batches.Load(),
		EpochsEnded:   rt.epochs.Load(),
		RangeMisses:   rt.misses.Load(),
		Closed:        rt.closed.Load(),
	}
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *BatchRuntime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *BatchRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *BatchRuntime) Closed() bool {
	return rt.closed.Load()
}

func (rt *BatchRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
