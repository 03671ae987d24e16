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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDecodeBatchRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/batch?did=7&name=wave&idx=3", nil)
	req, err := DecodeBatchRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.DatasetID != 7 || req.DatasetName != "wave" || req.Idx != 3 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeBatchRequestGETRequiresIdx(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/batch?did=7", nil)
	if _, err := DecodeBatchRequest(r); err == nil {
		t.Fatalf("expected error for missing idx")
	}
}

func TestDecodeBatchRequestPOST(t *testing.T) {
	payload := map[string]any{
		"did": 9,
		"idx": 0,
	}
	data, _ := json.Marshal(payload)
	r := httptest.NewRequest(http.MethodPost, "/batch", bytes.NewReader(data))
	req, err := DecodeBatchRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.DatasetID != 9 || req.Idx != 0 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeBatchRequestRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"did":1,"idx":0,"unknown":true}`)
	r := httptest.NewRequest(http.MethodPost, "/batch", bytes.NewReader(data))
	if _, err := DecodeBatchRequest(r); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDecodeEpochRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/epoch?did=2", nil)
	req, err := DecodeEpochRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.DatasetID != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeRunRequestDefaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/run?did=2", nil)
	req, err := DecodeRunRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Epochs != 1 || req.Workers != 1 || req.Seed != nil {
		t.Fatalf("unexpected defaults: %+v", req)
	}
}

func TestDecodeRunRequestSeedOverride(t *testing.T) {
	data := []byte(`{"did":2,"epochs":50,"workers":4,"seed":99}`)
	r := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(data))
	req, err := DecodeRunRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Epochs != 50 || req.Workers != 4 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Seed == nil || *req.Seed != 99 {
		t.Fatalf("unexpected seed: %+v", req.Seed)
	}
}
