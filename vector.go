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
	"fmt"

	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/sdk/core"
	"github.com/zintix-labs/batchlab/spec"
)

// ErrBatchIndex 是批次索引越界的哨兵；BatchIndexError.Unwrap 會回傳它，
// 讓上層用 errors.As(*errs.E) 就能辨識為呼叫端錯誤（Warn 級）。
var ErrBatchIndex = errs.NewWarn("batch index out of range")

// BatchIndexError 表示 Batch(idx) 收到不在 [0, StepsPerEpoch) 的索引。
//
// 它同時攜帶違規索引與當下的 StepsPerEpoch，方便呼叫端（訓練迴圈）
// 直接看出是迴圈邊界寫錯，而不是暫時性狀況。
type BatchIndexError struct {
	Idx           int
	StepsPerEpoch int
}

func (e *BatchIndexError) Error() string {
	return fmt.Sprintf("batch index %d out of range [0, %d)", e.Idx, e.StepsPerEpoch)
}

func (e *BatchIndexError) Unwrap() error {
	return ErrBatchIndex
}

// VectorSequence 是「決定性、epoch 感知」的向量批次迭代器。
//
// 它持有一份資料向量的私有副本、一個批次大小、一個 seed 與 epoch 計數
// （計數由 embedding 的 BaseSequence 負責），並以「洗牌視圖」回答批次查詢：
//
//   - 建構完成後、第一次 OnEpochEnd 之前，視圖等於原始向量的 identity 副本。
//   - 每次 OnEpochEnd 會先委派基底推進 elapsedEpochs，再用
//     `seed + elapsedEpochs`（推進後的值）重新 New 一個 PRNG、產生 [0,N) 的
//     排列，並「整份換掉」視圖——視圖永遠是從原始向量重排而來，
//     不做就地累積洗牌，因此狀態只由 (seed, elapsedEpochs) 決定，
//     與呼叫歷史無關。
//
// 併發語意：VectorSequence 不是併發安全結構，假設單一消費者依序呼叫
// Batch(0..steps-1) 後再呼叫一次 OnEpochEnd。需要跨 goroutine 共用時，
// 請交給 BatchRuntime 管理。
//
// 注意：`seed + elapsedEpochs` 的推導方式刻意保留「不同 (seed, epoch) 組合
// 只要和相同就得到同一排列」的特性；checkpoint/resume 的重現性依賴這個
// 公式，不要改成雜湊混合。
type VectorSequence struct {
	*BaseSequence

	name string
	did  spec.DID
	seed int64
	cf   core.PRNGFactory

	vector []float64 // 原始順序（私有副本，生命週期內不變）
	view   []float64 // 當前 epoch 的洗牌視圖（epoch 邊界整份替換）
}

// NewVectorSequence 建立一個向量批次迭代器。
//
// vector 會被複製一份，呼叫端之後對原 slice 的修改不影響本物件。
// elapsedEpochs > 0 表示「從訓練中途恢復」：視圖仍然從 identity 開始，
// 下一次 OnEpochEnd 會以 `seed + elapsedEpochs + 1` 推導排列。
func NewVectorSequence(name string, did spec.DID, vector []float64, batchSize int, seed int64, elapsedEpochs int, cf core.PRNGFactory) (*VectorSequence, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	base, err := NewBaseSequence(len(vector), batchSize, elapsedEpochs)
	if err != nil {
		return nil, err
	}

	own := make([]float64, len(vector))
	copy(own, vector)
	view := make([]float64, len(vector))
	copy(view, vector)

	return &VectorSequence{
		BaseSequence: base,
		name:         name,
		did:          did,
		seed:         seed,
		cf:           cf,
		vector:       own,
		view:         view,
	}, nil
}

// NewDefaultVectorSequence 是獨立使用（不經 catalog/assembler）的便利建構：
// seed 取 spec.DefaultSeed、elapsedEpochs 取 0、PRNG 取 core.Default()。
func NewDefaultVectorSequence(name string, did spec.DID, vector []float64, batchSize int) (*VectorSequence, error) {
	return NewVectorSequence(name, did, vector, batchSize, spec.DefaultSeed, 0, core.Default())
}

func (v *VectorSequence) Name() string {
	return v.name
}

func (v *VectorSequence) DID() spec.DID {
	return v.did
}

func (v *VectorSequence) Seed() int64 {
	return v.seed
}

// OnEpochEnd 推進 epoch 計數並重建洗牌視圖。
//
// 排列 seed 是推進「後」的 `seed + ElapsedEpochs()`；兩次連續呼叫
// 正常會得到兩個不同的排列（epoch 值不同）。
func (v *VectorSequence) OnEpochEnd() {
	v.BaseSequence.OnEpochEnd()
	v.reshuffle()
}

// reshuffle 以 (seed, elapsedEpochs) 重建視圖：每次都 New 一個全新、
// 區域性的 PRNG，不共用任何全域亂數狀態。
func (v *VectorSequence) reshuffle() {
	c := core.New(v.cf.New(v.seed + int64(v.ElapsedEpochs())))
	perm := c.Perm(len(v.vector))

	view := make([]float64, len(v.vector))
	for i, p := range perm {
		view[i] = v.vector[p]
	}
	v.view = view
}

// Batch 回傳當前視圖中第 idx 個批次：[idx*B, min((idx+1)*B, N)) 的連續切片。
//
// 回傳的是視圖的 subslice（熱路徑不複製）；它在下一次 OnEpochEnd 之前
// 都有效。若要跨 epoch 保留內容，請自行 copy（或經由 dto 轉出）。
//
// idx 不在 [0, StepsPerEpoch) 時回傳 *BatchIndexError。
func (v *VectorSequence) Batch(idx int) ([]float64, error) {
	steps := v.StepsPerEpoch()
	if idx < 0 || idx >= steps {
		return nil, &BatchIndexError{Idx: idx, StepsPerEpoch: steps}
	}
	lo := idx * v.BatchSize()
	hi := min(lo+v.BatchSize(), len(v.view))
	return v.view[lo:hi:hi], nil
}

// Vector 回傳原始順序向量的副本（觀測/統計用，不在熱路徑）。
func (v *VectorSequence) Vector() []float64 {
	out := make([]float64, len(v.vector))
	copy(out, v.vector)
	return out
}

// View 回傳當前洗牌視圖的副本（觀測/統計用，不在熱路徑）。
func (v *VectorSequence) View() []float64 {
	out := make([]float64, len(v.view))
	copy(out, v.view)
	return out
}
