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

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/spec"
)

// 防止 body 過大（預設 1MiB）
const maxBody = 1 << 20

// DecodeBatchRequest 會把 HTTP 請求解碼成 BatchRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（did/name/idx）。
//   - POST：從 JSON body 反序列化。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何資料集合法性校驗；
//     合法性（例如該 DID 是否存在、idx 是否越界）應由上層（Runtime）決定。
//   - POST 會開啟 DisallowUnknownFields()，對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeBatchRequest(r *http.Request) (*BatchRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(BatchRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.DatasetName = q.Get("name")

		did, err := queryDID(q.Get("did"))
		if err != nil {
			return nil, err
		}
		req.DatasetID = did

		s := q.Get("idx")
		if s == "" {
			return nil, errs.NewWarn("idx is required")
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errs.NewWarn(fmt.Sprintf("invalid idx: %v", err))
		}
		req.Idx = v

		return req, nil

	case http.MethodPost:
		if err := decodeBody(r, req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}

// DecodeEpochRequest 會把 HTTP 請求解碼成 EpochRequest（GET query 或 POST JSON）。
func DecodeEpochRequest(r *http.Request) (*EpochRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(EpochRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.DatasetName = q.Get("name")

		did, err := queryDID(q.Get("did"))
		if err != nil {
			return nil, err
		}
		req.DatasetID = did
		return req, nil

	case http.MethodPost:
		if err := decodeBody(r, req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}

// DecodeRunRequest 會把 HTTP 請求解碼成 RunRequest。
// epochs / workers 缺省時補 1；上限校驗交給上層 handler。
func DecodeRunRequest(r *http.Request) (*RunRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(RunRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()

		did, err := queryDID(q.Get("did"))
		if err != nil {
			return nil, err
		}
		req.DatasetID = did

		if s := q.Get("epochs"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid epochs: %v", err))
			}
			req.Epochs = v
		}

		if s := q.Get("workers"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid workers: %v", err))
			}
			req.Workers = v
		}

		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
			}
			req.Seed = &v
		}

	case http.MethodPost:
		if err := decodeBody(r, req); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("method not allowed")
	}

	if req.Epochs == 0 {
		req.Epochs = 1
	}
	if req.Workers == 0 {
		req.Workers = 1
	}
	return req, nil
}

func decodeBody(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func queryDID(s string) (spec.DID, error) {
	if s == "" {
		return 0, errs.NewWarn("did is required")
	}
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, errs.NewWarn(fmt.Sprintf("invalid did: %v", err))
	}
	return spec.DID(u), nil
}
