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

// Package vecio 負責把資料向量從 fs.FS 載入記憶體。
//
// 支援兩種 payload 格式：
//   - .json     ：JSON 浮點數陣列
//   - .json.zst ：zstd 壓縮後的 JSON 浮點數陣列（大向量建議使用）
//
// Batchlab 不解析「路徑」：payload 來源一律以 fs.FS + 檔名注入，
// go:embed / os.DirFS 皆可。
package vecio

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/batchlab/errs"
)

// Load 從 dataFS 讀取向量 payload，依副檔名決定是否先解壓。
func Load(dataFS fs.FS, path string) ([]float64, error) {
	if dataFS == nil {
		return nil, errs.NewFatal("data FS is nil")
	}
	if path == "" {
		return nil, errs.NewFatal("vector path is empty")
	}

	raw, err := fs.ReadFile(dataFS, path)
	if err != nil {
		return nil, errs.Wrap(err, "read vector payload failed")
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json.zst"):
		return decodeZst(raw)
	case strings.HasSuffix(lower, ".json"):
		return decodeJSON(raw)
	default:
		return nil, errs.Fatalf("unsupported vector payload: %q", path)
	}
}

func decodeZst(compressed []byte) ([]float64, error) {
	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()

	jsonBytes, err := io.ReadAll(zr)
	if err != nil {
		return nil, errs.Wrap(err, "read decompressed data failed")
	}
	return decodeJSON(jsonBytes)
}

func decodeJSON(raw []byte) ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, errs.Wrap(err, "unmarshal vector json failed")
	}
	return vec, nil
}

// Save 把向量寫成 zstd 壓縮的 JSON payload，供產生測試/示範資料使用。
func Save(w io.Writer, vec []float64) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return errs.Wrap(err, "create zstd writer failed")
	}
	if err := json.NewEncoder(zw).Encode(vec); err != nil {
		_ = zw.Close()
		return errs.Wrap(err, "encode vector json failed")
	}
	if err := zw.Close(); err != nil {
		return errs.Wrap(err, "close zstd writer failed")
	}
	return nil
}
