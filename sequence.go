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
	"github.com/zintix-labs/batchlab/errs"
)

// Sequence 是 epoch 感知批次迭代器的基底合約。
//
// 它只負責「尺寸與 epoch 計數」這些簿記能力：
//   - SamplesNumber / BatchSize / StepsPerEpoch：尺寸查詢（唯讀）。
//   - ElapsedEpochs：已完成的 epoch 數（由 OnEpochEnd 推進）。
//   - OnEpochEnd：每完成一個 epoch 呼叫一次的 hook。
//
// 具體的批次內容（例如 VectorSequence 的洗牌視圖）由實作者在這個
// 合約之上擴充；擴充者的 OnEpochEnd 必須先委派回基底行為推進計數。
type Sequence interface {
	// SamplesNumber 回傳資料集樣本總數 N。
	SamplesNumber() int
	// BatchSize 回傳批次大小 B。
	BatchSize() int
	// StepsPerEpoch 回傳一個 epoch 的批次數，等於 ceil(N/B)。
	StepsPerEpoch() int
	// ElapsedEpochs 回傳已完成的 epoch 數。
	ElapsedEpochs() int
	// OnEpochEnd 在每個 epoch 結束時呼叫一次，推進 ElapsedEpochs。
	OnEpochEnd()
}

// BaseSequence 是 Sequence 的最小實作：只做尺寸與 epoch 簿記。
//
// 它不持有任何資料內容，VectorSequence 以 embedding 的方式取得這些能力。
type BaseSequence struct {
	samplesNumber int
	batchSize     int
	elapsedEpochs int
}

// NewBaseSequence 建立基底簿記。
//
// 合約：batchSize 必須 > 0、elapsedEpochs 必須 >= 0、samplesNumber 必須 >= 0。
// batchSize 大於 samplesNumber 是合法的（單一批次涵蓋整個資料集）。
func NewBaseSequence(samplesNumber int, batchSize int, elapsedEpochs int) (*BaseSequence, error) {
	if samplesNumber < 0 {
		return nil, errs.NewFatal("samples number must >= 0")
	}
	if batchSize < 1 {
		return nil, errs.NewFatal("batch size must >= 1")
	}
	if elapsedEpochs < 0 {
		return nil, errs.NewFatal("elapsed epochs must >= 0")
	}
	return &BaseSequence{
		samplesNumber: samplesNumber,
		batchSize:     batchSize,
		elapsedEpochs: elapsedEpochs,
	}, nil
}

func (s *BaseSequence) SamplesNumber() int {
	return s.samplesNumber
}

func (s *BaseSequence) BatchSize() int {
	return s.batchSize
}

// StepsPerEpoch = ceil(N/B)，N=0 時回傳 0（任何批次索引都無效）。
func (s *BaseSequence) StepsPerEpoch() int {
	return (s.samplesNumber + s.batchSize - 1) / s.batchSize
}

func (s *BaseSequence) ElapsedEpochs() int {
	return s.elapsedEpochs
}

// OnEpochEnd 推進 epoch 計數；只會前進，不會回捲。
func (s *BaseSequence) OnEpochEnd() {
	s.elapsedEpochs++
}
