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

package batchlab_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/batchlab"
	"github.com/zintix-labs/batchlab/dto"
	"github.com/zintix-labs/batchlab/sdk/core"
)

func ramp(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = float64(i)
	}
	return v
}

func newSeq(t *testing.T, n, batch int, seed int64, elapsed int) *batchlab.VectorSequence {
	t.Helper()
	vs, err := batchlab.NewVectorSequence("test", 1, ramp(n), batch, seed, elapsed, core.Default())
	if err != nil {
		t.Fatalf("new sequence: %v", err)
	}
	return vs
}

func equalVec(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// N=10, B=3：steps=4；第一次 OnEpochEnd 前視圖是 identity，
// 批次 0~2 長度 3、批次 3 長度 1。
func TestIdentityBeforeEpochEnd(t *testing.T) {
	vs := newSeq(t, 10, 3, 42, 0)

	if vs.StepsPerEpoch() != 4 {
		t.Fatalf("steps got %d", vs.StepsPerEpoch())
	}
	b0, err := vs.Batch(0)
	if err != nil {
		t.Fatalf("batch 0: %v", err)
	}
	if !equalVec(b0, []float64{0, 1, 2}) {
		t.Fatalf("batch 0 must be identity order, got %v", b0)
	}
	for idx, want := range []int{3, 3, 3, 1} {
		b, err := vs.Batch(idx)
		if err != nil {
			t.Fatalf("batch %d: %v", idx, err)
		}
		if len(b) != want {
			t.Fatalf("batch %d length got %d want %d", idx, len(b), want)
		}
	}
}

// 任意 OnEpochEnd 後的視圖都是原向量的排列（同長度、同多重集合）。
func TestPermutationProperty(t *testing.T) {
	vs := newSeq(t, 50, 7, 42, 0)
	orig := vs.Vector()

	identityEpochs := 0
	for e := 0; e < 3; e++ {
		vs.OnEpochEnd()
		view := vs.View()
		if len(view) != len(orig) {
			t.Fatalf("epoch %d: length got %d", e+1, len(view))
		}
		sortedView := append([]float64(nil), view...)
		sortedOrig := append([]float64(nil), orig...)
		sort.Float64s(sortedView)
		sort.Float64s(sortedOrig)
		if !equalVec(sortedView, sortedOrig) {
			t.Fatalf("epoch %d: view is not a permutation", e+1)
		}
		if equalVec(view, orig) {
			identityEpochs++
		}
	}
	// 50 個元素連續 3 個 epoch 都洗回 identity，等同洗牌壞掉
	if identityEpochs == 3 {
		t.Fatalf("shuffle never moved any element")
	}
}

// 同 (seed, elapsed) 的兩個獨立序列，到達同一 epoch 後視圖必須完全一致。
func TestDeterminism(t *testing.T) {
	a := newSeq(t, 64, 8, 42, 0)
	b := newSeq(t, 64, 8, 42, 0)
	for e := 0; e < 3; e++ {
		a.OnEpochEnd()
		b.OnEpochEnd()
		if !equalVec(a.View(), b.View()) {
			t.Fatalf("epoch %d: views diverged", e+1)
		}
	}
}

// 視圖只由 (seed, elapsed) 決定：從中途恢復（elapsed=5）走一個 epoch，
// 必須等於從頭走 6 個 epoch。
func TestResumeMatchesFullHistory(t *testing.T) {
	resumed := newSeq(t, 32, 5, 42, 5)
	if !equalVec(resumed.View(), resumed.Vector()) {
		t.Fatalf("resumed sequence must start from identity view")
	}
	resumed.OnEpochEnd() // elapsed 6

	full := newSeq(t, 32, 5, 42, 0)
	for e := 0; e < 6; e++ {
		full.OnEpochEnd()
	}
	if !equalVec(resumed.View(), full.View()) {
		t.Fatalf("resume view must match full history view")
	}
}

// 全批次 union 無缺漏、無重疊地重建整個視圖。
func TestCoverageProperty(t *testing.T) {
	vs := newSeq(t, 23, 4, 42, 0)
	vs.OnEpochEnd()

	rebuilt := make([]float64, 0, 23)
	for i := 0; i < vs.StepsPerEpoch(); i++ {
		b, err := vs.Batch(i)
		if err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
		rebuilt = append(rebuilt, b...)
	}
	if !equalVec(rebuilt, vs.View()) {
		t.Fatalf("batches do not reconstruct the view")
	}
}

// N 非 B 的倍數時，最後一批長度為 N mod B，其餘皆為 B。
func TestBoundaryProperty(t *testing.T) {
	vs := newSeq(t, 10, 3, 42, 0)
	last, err := vs.Batch(vs.StepsPerEpoch() - 1)
	if err != nil {
		t.Fatalf("last batch: %v", err)
	}
	if len(last) != 10%3 {
		t.Fatalf("last batch length got %d want %d", len(last), 10%3)
	}

	// B > N：單一批次涵蓋整個資料集
	whole := newSeq(t, 4, 9, 42, 0)
	if whole.StepsPerEpoch() != 1 {
		t.Fatalf("steps got %d", whole.StepsPerEpoch())
	}
	b, err := whole.Batch(0)
	if err != nil {
		t.Fatalf("batch 0: %v", err)
	}
	if len(b) != 4 {
		t.Fatalf("batch length got %d", len(b))
	}
}

// 越界（含負值）必須回 BatchIndexError，並攜帶違規索引與 steps。
func TestOutOfRange(t *testing.T) {
	vs := newSeq(t, 10, 3, 42, 0)

	for _, idx := range []int{vs.StepsPerEpoch(), -1, 1 << 20} {
		_, err := vs.Batch(idx)
		if err == nil {
			t.Fatalf("idx %d: expected error", idx)
		}
		var bie *batchlab.BatchIndexError
		if !errors.As(err, &bie) {
			t.Fatalf("idx %d: expected BatchIndexError, got %v", idx, err)
		}
		if bie.Idx != idx || bie.StepsPerEpoch != 4 {
			t.Fatalf("idx %d: error payload got %+v", idx, bie)
		}
		if !errors.Is(err, batchlab.ErrBatchIndex) {
			t.Fatalf("idx %d: sentinel not wrapped", idx)
		}
	}
}

// N=9, B=3, seed=42：一次 OnEpochEnd 後排列 seed 是 42+1=43。
// 用 seed=43、elapsed=0 的新序列再走一次 OnEpochEnd（排列 seed 44）
// 不會重現同一排列；但 seed=40、elapsed=2 走一次（40+3=43）會。
func TestSeedDerivation(t *testing.T) {
	a := newSeq(t, 9, 3, 42, 0)
	a.OnEpochEnd()

	b := newSeq(t, 9, 3, 43, 0)
	b.OnEpochEnd()
	if equalVec(a.View(), b.View()) {
		t.Fatalf("seed derivation must use post-increment elapsed, not base seed alone")
	}

	c := newSeq(t, 9, 3, 40, 2)
	c.OnEpochEnd()
	if !equalVec(a.View(), c.View()) {
		t.Fatalf("equal derived seeds (42+1 and 40+3) must reproduce the same permutation")
	}
}

// 連續兩次 OnEpochEnd 正常會得到兩個不同的排列（epoch 值不同）。
func TestConsecutiveEpochsDiffer(t *testing.T) {
	vs := newSeq(t, 40, 5, 42, 0)
	vs.OnEpochEnd()
	v1 := vs.View()
	vs.OnEpochEnd()
	v2 := vs.View()
	if equalVec(v1, v2) {
		t.Fatalf("consecutive epochs produced identical views")
	}
	if vs.ElapsedEpochs() != 2 {
		t.Fatalf("elapsed got %d", vs.ElapsedEpochs())
	}
}

// 便利建構使用預設 seed 42 / elapsed 0 / 預設 PRNG，與明確建構等價。
func TestDefaultConstruction(t *testing.T) {
	vs, err := batchlab.NewDefaultVectorSequence("test", 1, ramp(9), 3)
	if err != nil {
		t.Fatalf("new default sequence: %v", err)
	}
	if vs.Seed() != 42 || vs.ElapsedEpochs() != 0 {
		t.Fatalf("defaults got seed=%d elapsed=%d", vs.Seed(), vs.ElapsedEpochs())
	}

	ref := newSeq(t, 9, 3, 42, 0)
	vs.OnEpochEnd()
	ref.OnEpochEnd()
	if !equalVec(vs.View(), ref.View()) {
		t.Fatalf("default construction diverged from explicit construction")
	}
}

func TestConstructionRejects(t *testing.T) {
	if _, err := batchlab.NewVectorSequence("x", 1, ramp(4), 0, 42, 0, core.Default()); err == nil {
		t.Fatalf("expected batch size rejection")
	}
	if _, err := batchlab.NewVectorSequence("x", 1, ramp(4), 2, 42, -1, core.Default()); err == nil {
		t.Fatalf("expected elapsed rejection")
	}
	if _, err := batchlab.NewVectorSequence("x", 1, ramp(4), 2, 42, 0, nil); err == nil {
		t.Fatalf("expected nil factory rejection")
	}
}

// ============================================================
// assembler / runtime / runner
// ============================================================

const waveYAML = `
dataset_name: wave
dataset_id: 1
batch_size: 3
source:
  values: [0, 1, 2, 3, 4, 5, 6, 7, 8, 9]
`

const rampJSON = `{"dataset_name":"ramp","dataset_id":2,"batch_size":2,"seed":7,"source":{"path":"ramp.json"}}`

func testLab(t *testing.T) *batchlab.Batchlab {
	t.Helper()
	cfgFS := fstest.MapFS{
		"wave.yaml": &fstest.MapFile{Data: []byte(waveYAML)},
		"ramp.json": &fstest.MapFile{Data: []byte(rampJSON)},
	}
	dataFS := fstest.MapFS{
		"ramp.json": &fstest.MapFile{Data: []byte("[10, 20, 30, 40, 50]")},
	}
	lab, err := batchlab.NewAuto(core.Default(), batchlab.Configs(cfgFS), dataFS)
	if err != nil {
		t.Fatalf("new lab: %v", err)
	}
	return lab
}

func TestAssembler(t *testing.T) {
	lab := testLab(t)

	ids := lab.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids got %v", ids)
	}

	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum) != 2 || sum[0].Name != "wave" || sum[0].Seed != 42 || sum[1].Seed != 7 {
		t.Fatalf("summary got %+v", sum)
	}

	// payload 路徑資料集：向量由 data FS 載入
	vs, err := lab.NewSequence(2)
	if err != nil {
		t.Fatalf("new sequence: %v", err)
	}
	if vs.SamplesNumber() != 5 || vs.Seed() != 7 {
		t.Fatalf("sequence got N=%d seed=%d", vs.SamplesNumber(), vs.Seed())
	}

	// 兩個獨立 lab 對同一設定建出的序列必須決定性一致
	other := testLab(t)
	va, _ := lab.NewSequence(1)
	vb, _ := other.NewSequence(1)
	va.OnEpochEnd()
	vb.OnEpochEnd()
	if !equalVec(va.View(), vb.View()) {
		t.Fatalf("independent labs diverged on the same setting")
	}
}

func TestAssemblerRejectsMissingPayload(t *testing.T) {
	cfgFS := fstest.MapFS{
		"ramp.json": &fstest.MapFile{Data: []byte(rampJSON)},
	}
	if _, err := batchlab.NewAuto(core.Default(), batchlab.Configs(cfgFS), nil); err == nil {
		t.Fatalf("expected rejection: payload path without data FS")
	}
	if _, err := batchlab.NewAuto(core.Default(), batchlab.Configs(cfgFS), fstest.MapFS{}); err == nil {
		t.Fatalf("expected rejection: payload file missing")
	}
}

func TestRuntime(t *testing.T) {
	lab := testLab(t)
	rt, err := lab.BuildRuntime()
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	res, err := rt.Batch(ctx, &dto.BatchRequest{DatasetID: 1, Idx: 0})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !equalVec(res.Values, []float64{0, 1, 2}) {
		t.Fatalf("identity batch got %v", res.Values)
	}
	if res.StepsPerEpoch != 4 || res.ElapsedEpochs != 0 || res.Samples != 10 {
		t.Fatalf("bookkeeping got %+v", res)
	}

	er, err := rt.EpochEnd(ctx, &dto.EpochRequest{DatasetID: 1})
	if err != nil {
		t.Fatalf("epoch end: %v", err)
	}
	if er.ElapsedEpochs != 1 {
		t.Fatalf("elapsed got %d", er.ElapsedEpochs)
	}

	if _, err := rt.Batch(ctx, &dto.BatchRequest{DatasetID: 1, Idx: 99}); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if _, err := rt.Batch(ctx, &dto.BatchRequest{DatasetID: 77, Idx: 0}); err == nil {
		t.Fatalf("expected unknown dataset error")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := rt.Batch(canceled, &dto.BatchRequest{DatasetID: 1, Idx: 0}); err == nil {
		t.Fatalf("expected cancellation error")
	}

	m := rt.Metrics()
	if m.Datasets != 2 || m.BatchesServed != 1 || m.EpochsEnded != 1 || m.RangeMisses != 1 {
		t.Fatalf("metrics got %+v", m)
	}

	rt.Close()
	if !rt.Closed() || rt.ClosedReason() != "closed" {
		t.Fatalf("close state got %v %q", rt.Closed(), rt.ClosedReason())
	}
	if _, err := rt.Batch(ctx, &dto.BatchRequest{DatasetID: 1, Idx: 0}); err == nil {
		t.Fatalf("expected closed runtime error")
	}
}

func TestRunner(t *testing.T) {
	lab := testLab(t)
	runner, err := lab.NewRunner(1)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	rep, used, err := runner.Run(3, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Summary.Epochs != 3 {
		t.Fatalf("epochs got %d", rep.Summary.Epochs)
	}
	// 3 epochs x 4 批次
	if rep.Batch.Count != 12 {
		t.Fatalf("batch count got %d", rep.Batch.Count)
	}
	if used < 0 {
		t.Fatalf("negative duration")
	}

	if _, _, err := runner.Run(0, false); err == nil {
		t.Fatalf("expected epochs validation error")
	}
}

func TestRunnerMP(t *testing.T) {
	lab := testLab(t)
	runner, err := lab.NewRunnerWithSeed(1, 1234)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	rep, _, err := runner.RunMP(2, 3, false)
	if err != nil {
		t.Fatalf("run mp: %v", err)
	}
	if rep.Summary.Epochs != 6 {
		t.Fatalf("merged epochs got %d", rep.Summary.Epochs)
	}
	if rep.Summary.BadViews != 0 {
		t.Fatalf("bad views got %d", rep.Summary.BadViews)
	}

	if _, _, err := runner.RunMP(1, 0, false); err == nil {
		t.Fatalf("expected workers validation error")
	}
}
