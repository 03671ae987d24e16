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
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/spec"
	"github.com/zintix-labs/batchlab/stats"
)

const capPrepare int = 100

// EpochRunner 用於分析洗牌品質：可建立多條序列並平行紀錄統計。
//
// 它驅動「完整 epoch 迴圈」——每個 epoch 依序取完 Batch(0..steps-1)、
// 呼叫一次 OnEpochEnd——並把每個 epoch 的洗牌視圖交給 stats 紀錄。
type EpochRunner struct {
	DatasetName string   // 資料集名稱
	DatasetID   spec.DID // 資料集 ID
	ds          *spec.DatasetSetting
	lab         *Batchlab
	initSeed    int64                  // 初始下的種子
	seedmaker   *seedMaker             // 種子生成器（RunMP 用）
	vBuf        []*VectorSequence      // 併發執行序列實例
	rBuf        []*stats.EpochRecorder // 併發洗牌紀錄員
}

func (b *Batchlab) newRunner(ds *spec.DatasetSetting, seed int64) (*EpochRunner, error) {
	r := &EpochRunner{
		DatasetName: ds.DatasetName,
		DatasetID:   ds.DatasetID,
		ds:          ds,
		lab:         b,
		initSeed:    seed,
		seedmaker:   newSeedMaker(seed),
		vBuf:        make([]*VectorSequence, 1, capPrepare),
		rBuf:        make([]*stats.EpochRecorder, 0, capPrepare),
	}
	vs, err := b.newSequence(ds, seed, ds.ElapsedEpochs)
	if err != nil {
		return nil, err
	}
	r.vBuf[0] = vs
	return r, nil
}

// Run 單線分析：以一條序列連續跑指定 epoch 數並回傳洗牌統計與用時。
//
// 每個 epoch 嚴格依合約走：Batch(0..steps-1) 全取一輪、再 OnEpochEnd 一次。
func (r *EpochRunner) Run(epochs int, showpb bool) (*stats.ShuffleReport, time.Duration, error) {
	defer r.reset()
	if epochs < 1 {
		return nil, 0, errs.NewWarn("epochs must > 0")
	}
	if len(r.rBuf) == 0 {
		rec, err := stats.NewEpochRecorder(r.DatasetName, r.DatasetID, r.ds.BatchSize, r.vBuf[0].Vector())
		if err != nil {
			return nil, 0, err
		}
		r.rBuf = append(r.rBuf, rec)
	}
	rec := r.rBuf[0]
	vs := r.vBuf[0]

	bar := pb.StartNew(epochs)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for e := 0; e < epochs; e++ {
		if err := fullPass(vs, rec); err != nil {
			return nil, 0, err
		}
		vs.OnEpochEnd()
		rec.Record(vs.View())
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	result := rec.Done()
	result.Done()

	return result, used, nil
}

// RunMP 平行執行多條序列（各自衍生獨立 seed），總計 epochs*mp 個 epoch，
// 合併統計結果後回傳洗牌統計與用時。
//
// 注意：RunMP 取樣的是「洗牌品質在不同 seed 下的分佈」；
// 單一資料集的批次決定性由 Run / BatchRuntime 的單序列路徑保證。
func (r *EpochRunner) RunMP(epochs int, mp int, showpb bool) (*stats.ShuffleReport, time.Duration, error) {
	defer r.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if epochs < 1 {
		return nil, 0, errs.NewWarn("epochs must > 0")
	}
	for len(r.vBuf) < mp {
		vs, err := r.lab.newSequence(r.ds, r.seedmaker.next(), r.ds.ElapsedEpochs)
		if err != nil {
			return nil, 0, err
		}
		r.vBuf = append(r.vBuf, vs)
	}

	for len(r.rBuf) < mp {
		rec, err := stats.NewEpochRecorder(r.DatasetName, r.DatasetID, r.ds.BatchSize, r.vBuf[0].Vector())
		if err != nil {
			return nil, 0, err
		}
		r.rBuf = append(r.rBuf, rec)
	}

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(epochs * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	errc := make(chan error, mp)
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			vs := r.vBuf[i]
			rec := r.rBuf[i]
			for e := 0; e < epochs; e++ {
				if err := fullPass(vs, rec); err != nil {
					errc <- err
					return
				}
				vs.OnEpochEnd()
				rec.Record(vs.View())
				bar.Increment()
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	close(errc)
	if err := <-errc; err != nil {
		return nil, 0, err
	}

	rec, err := stats.MergeEpochRecorder(r.rBuf)
	if err != nil {
		return nil, 0, err
	}
	result := rec.Done()
	result.Done()

	return result, used, nil
}

// fullPass 依合約取完一整輪批次，並驗證 coverage（無缺漏、無重疊）。
func fullPass(vs *VectorSequence, rec *stats.EpochRecorder) error {
	total := 0
	for i := 0; i < vs.StepsPerEpoch(); i++ {
		batch, err := vs.Batch(i)
		if err != nil {
			return err
		}
		rec.RecordBatch(batch)
		total += len(batch)
	}
	if total != vs.SamplesNumber() {
		return errs.NewFatal("batch coverage mismatch")
	}
	return nil
}

func (r *EpochRunner) reset() {
	r.rBuf = r.rBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（例如 RunMP）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
