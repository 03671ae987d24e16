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

package spec_test

import (
	"testing"

	"github.com/zintix-labs/batchlab/spec"
)

const goodYAML = `
dataset_name: wave
dataset_id: 1001
batch_size: 3
source:
  values: [0.1, 0.2, 0.3, 0.4, 0.5]
`

func TestGetDatasetSettingByYAML(t *testing.T) {
	ds, err := spec.GetDatasetSettingByYAML([]byte(goodYAML))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ds.DatasetName != "wave" || ds.DatasetID != spec.DID(1001) {
		t.Fatalf("unexpected identity: %+v", ds)
	}
	if ds.BatchSize != 3 {
		t.Fatalf("batch_size got %d", ds.BatchSize)
	}
	if ds.SeedValue() != spec.DefaultSeed {
		t.Fatalf("omitted seed must resolve to default, got %d", ds.SeedValue())
	}
	if !ds.Source.Inline() || len(ds.Source.Values) != 5 {
		t.Fatalf("unexpected source: %+v", ds.Source)
	}
}

func TestExplicitZeroSeed(t *testing.T) {
	raw := `
dataset_name: zeroed
dataset_id: 2
batch_size: 2
seed: 0
source:
  values: [1, 2]
`
	ds, err := spec.GetDatasetSettingByYAML([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	// 顯式 seed: 0 不可被默認值 42 覆蓋
	if ds.SeedValue() != 0 {
		t.Fatalf("explicit zero seed lost, got %d", ds.SeedValue())
	}
}

func TestSettingValidation(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"zero batch", "dataset_name: a\ndataset_id: 1\nbatch_size: 0\nsource:\n  values: [1]\n"},
		{"no name", "dataset_id: 1\nbatch_size: 1\nsource:\n  values: [1]\n"},
		{"no source", "dataset_name: a\ndataset_id: 1\nbatch_size: 1\n"},
		{"both sources", "dataset_name: a\ndataset_id: 1\nbatch_size: 1\nsource:\n  values: [1]\n  path: v.json\n"},
		{"bad ext", "dataset_name: a\ndataset_id: 1\nbatch_size: 1\nsource:\n  path: v.yaml\n"},
		{"negative elapsed", "dataset_name: a\ndataset_id: 1\nbatch_size: 1\nelapsed_epochs: -1\nsource:\n  values: [1]\n"},
	}
	for _, c := range cases {
		if _, err := spec.GetDatasetSettingByYAML([]byte(c.raw)); err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}

func TestGetDatasetSettingByJSON(t *testing.T) {
	raw := `{"dataset_name":"j","dataset_id":7,"batch_size":2,"seed":9,"source":{"values":[1,2,3]}}`
	ds, err := spec.GetDatasetSettingByJSON([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ds.SeedValue() != 9 {
		t.Fatalf("seed got %d", ds.SeedValue())
	}
}
