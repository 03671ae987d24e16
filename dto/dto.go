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

// Package dto 定義對外交換用的資料傳輸物件。
//
// DTO 與內部熱路徑 buffer 的邊界：runtime 內部回傳的批次是視圖的
// subslice（會在 epoch 邊界失效），轉成 DTO 時一律深拷貝，
// 呼叫端拿到的 BatchResult 永遠安全可保留。
package dto

import (
	"github.com/zintix-labs/batchlab/spec"
)

// BatchRequest 是批次查詢請求。
type BatchRequest struct {
	DatasetID   spec.DID `json:"did"`
	DatasetName string   `json:"dataset_name,omitempty"`
	Idx         int      `json:"idx"`
}

// BatchResult 是批次查詢結果（含深拷貝後的批次內容與當下簿記值）。
type BatchResult struct {
	DatasetID     spec.DID  `json:"did"`
	DatasetName   string    `json:"dataset_name"`
	Idx           int       `json:"idx"`
	Values        []float64 `json:"values"`
	ElapsedEpochs int       `json:"elapsed_epochs"`
	StepsPerEpoch int       `json:"steps_per_epoch"`
	BatchSize     int       `json:"batch_size"`
	Samples       int       `json:"samples"`
}

// EpochRequest 是 epoch 推進請求。
type EpochRequest struct {
	DatasetID   spec.DID `json:"did"`
	DatasetName string   `json:"dataset_name,omitempty"`
}

// EpochResult 回報推進後的簿記值。
type EpochResult struct {
	DatasetID     spec.DID `json:"did"`
	DatasetName   string   `json:"dataset_name"`
	ElapsedEpochs int      `json:"elapsed_epochs"`
	StepsPerEpoch int      `json:"steps_per_epoch"`
}

// RunRequest 是洗牌品質分析請求（EpochRunner）。
type RunRequest struct {
	DatasetID spec.DID `json:"did"`
	Epochs    int      `json:"epochs"`
	Workers   int      `json:"workers"` // <=1 時走單線 Run
	Seed      *int64   `json:"seed"`    // 省略時使用設定檔 seed
}
