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

package stats

import (
	"fmt"

	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/spec"
	"gonum.org/v1/gonum/stat"
)

// EpochRecorder 洗牌紀錄員
//
// EpochRecorder 負責紀錄每個 epoch 的洗牌視圖與批次內容，並透過 Done 輸出統計報表。
//
// 紀錄兩種訊號：
//   - Record(view)：每個 epoch 結束時的完整洗牌視圖（固定點數、位移量）。
//   - RecordBatch(batch)：熱路徑上每個批次的均值（批次間均勻度）。
type EpochRecorder struct {
	DatasetName string
	DatasetID   spec.DID
	BatchSize   int

	original []float64

	// 累積計數（Merge 與 Done 的基礎）
	Epochs       int
	FixedPoints  int       // 各 epoch 中 view[i]==original[i] 的總數
	Displacement float64   // 各 epoch 位移量總和（sum |new pos - orig pos|）
	BatchMeans   []float64 // 每個批次的均值（跨 epoch 累積）
	BadViews     int       // 長度不符的視圖數（正常情況恆為 0）
}

func NewEpochRecorder(name string, id spec.DID, batchSize int, original []float64) (*EpochRecorder, error) {
	r := new(EpochRecorder)

	if batchSize < 1 {
		return r, errs.NewFatal(fmt.Sprintf("batch size err %d", batchSize))
	}
	if len(original) == 0 {
		return r, errs.NewFatal("original vector must not be empty")
	}

	// 通過valid
	r.DatasetName = name
	r.DatasetID = id
	r.BatchSize = batchSize
	r.original = make([]float64, len(original))
	copy(r.original, original)
	r.BatchMeans = make([]float64, 0, 1024)

	return r, nil
}

// MergeEpochRecorder 合併多個紀錄員（RunMP 用）；要求同一個資料集。
func MergeEpochRecorder(rs []*EpochRecorder) (*EpochRecorder, error) {
	if len(rs) == 0 {
		return nil, errs.NewFatal("merge epoch record err : empty input")
	}
	r0 := rs[0]
	m, err := NewEpochRecorder(r0.DatasetName, r0.DatasetID, r0.BatchSize, r0.original)
	if err != nil {
		return m, err
	}
	for _, v := range rs {
		if v.DatasetName != r0.DatasetName {
			return m, errs.NewFatal("merge epoch record err : different dataset name")
		}
		if v.DatasetID != r0.DatasetID {
			return m, errs.NewFatal("merge epoch record err : different dataset id")
		}
		if len(v.original) != len(r0.original) {
			return m, errs.NewFatal("merge epoch record err : different samples number")
		}
		m.Epochs += v.Epochs
		m.FixedPoints += v.FixedPoints
		m.Displacement += v.Displacement
		m.BatchMeans = append(m.BatchMeans, v.BatchMeans...)
		m.BadViews += v.BadViews
	}
	return m, nil
}

// Record 紀錄一個 epoch 結束後的洗牌視圖。
//
// 位移量以「值的出現序」做穩定配對：重複值依原始出現順序對應，
// 使 |新位置 - 原位置| 在有重複元素時仍是確定值。
func (r *EpochRecorder) Record(view []float64) {
	if len(view) != len(r.original) {
		r.BadViews++
		return
	}

	// value -> 原始位置佇列（出現序）
	pos := make(map[float64][]int, len(r.original))
	for i, v := range r.original {
		pos[v] = append(pos[v], i)
	}

	fixed := 0
	disp := 0.0
	for i, v := range view {
		q := pos[v]
		if len(q) == 0 {
			// 不是原向量的排列；整個 epoch 視為壞視圖
			r.BadViews++
			return
		}
		j := q[0]
		pos[v] = q[1:]
		if i == j {
			fixed++
		}
		d := float64(i - j)
		if d < 0 {
			d = -d
		}
		disp += d
	}

	r.Epochs++
	r.FixedPoints += fixed
	r.Displacement += disp
}

// RecordBatch 紀錄熱路徑上的一個批次均值。
func (r *EpochRecorder) RecordBatch(batch []float64) {
	if len(batch) == 0 {
		return
	}
	r.BatchMeans = append(r.BatchMeans, stat.Mean(batch, nil))
}

// Done 整理累積計數並輸出報表。
func (r *EpochRecorder) Done() *ShuffleReport {
	n := len(r.original)
	steps := (n + r.BatchSize - 1) / r.BatchSize

	s := &ShuffleReport{
		Summary: &SummaryReport{
			DatasetName:   r.DatasetName,
			DatasetID:     r.DatasetID,
			Samples:       n,
			BatchSize:     r.BatchSize,
			StepsPerEpoch: steps,
			Epochs:        r.Epochs,
			BadViews:      r.BadViews,
		},
		Shuffle: &ShuffleQuality{
			FixedPoints:  r.FixedPoints,
			Displacement: r.Displacement,
		},
		Batch: &BatchUniformity{
			Means: append([]float64(nil), r.BatchMeans...),
		},
	}
	return s
}
