package catalog_test

import (
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/batchlab/catalog"
	"github.com/zintix-labs/batchlab/spec"
)

const waveYAML = `
dataset_name: wave
dataset_id: 1
batch_size: 3
source:
  values: [0.1, 0.2, 0.3, 0.4]
`

func cfgFS() fstest.MapFS {
	return fstest.MapFS{
		"wave.yaml": &fstest.MapFile{Data: []byte(waveYAML)},
		"ramp.json": &fstest.MapFile{Data: []byte(`{"dataset_name":"ramp","dataset_id":2,"batch_size":2,"source":{"values":[1,2,3]}}`)},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	c, err := catalog.New(cfgFS())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	err = c.Register(
		catalog.Entry{DID: 1, Name: "Wave", ConfigName: "wave.yaml"},
		catalog.Entry{DID: 2, Name: "ramp", ConfigName: "ramp.json"},
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// 名稱查詢大小寫不敏感
	if _, ok := c.GetByName("WAVE"); !ok {
		t.Fatalf("name lookup should be case-insensitive")
	}

	ds, err := c.DatasetSettingById(1)
	if err != nil {
		t.Fatalf("setting by id: %v", err)
	}
	if ds.DatasetName != "wave" || ds.BatchSize != 3 {
		t.Fatalf("unexpected setting: %+v", ds)
	}

	ds, err = c.DatasetSettingByName("ramp")
	if err != nil {
		t.Fatalf("setting by name: %v", err)
	}
	if ds.DatasetID != spec.DID(2) {
		t.Fatalf("unexpected setting: %+v", ds)
	}

	ids := c.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids not stable-sorted: %v", ids)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	c, err := catalog.New(cfgFS())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if err := c.Register(catalog.Entry{DID: 1, Name: "wave", ConfigName: "wave.yaml"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Register(catalog.Entry{DID: 1, Name: "other", ConfigName: "ramp.json"}); err == nil {
		t.Fatalf("expected duplicate id rejection")
	}
	if err := c.Register(catalog.Entry{DID: 3, Name: "wave", ConfigName: "ramp.json"}); err == nil {
		t.Fatalf("expected duplicate name rejection")
	}
	if err := c.Register(catalog.Entry{DID: 3, Name: "again", ConfigName: "wave.yaml"}); err == nil {
		t.Fatalf("expected duplicate config rejection")
	}
	if err := c.Register(catalog.Entry{DID: 3, Name: "ghost", ConfigName: "missing.yaml"}); err == nil {
		t.Fatalf("expected missing config rejection")
	}
}

func TestFreezeBlocksRegister(t *testing.T) {
	c, err := catalog.New(cfgFS())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	c.Freeze()
	if !c.IsFrozen() {
		t.Fatalf("catalog should be frozen")
	}
	if err := c.Register(catalog.Entry{DID: 1, Name: "wave", ConfigName: "wave.yaml"}); err == nil {
		t.Fatalf("register must fail after freeze")
	}
}

func TestMultiFSRejectsNestedAndDup(t *testing.T) {
	nested := fstest.MapFS{
		"sub/x.yaml": &fstest.MapFile{Data: []byte("x")},
	}
	if _, err := catalog.New(nested); err == nil {
		t.Fatalf("expected flat-FS violation")
	}

	a := fstest.MapFS{"same.yaml": &fstest.MapFile{Data: []byte("a")}}
	b := fstest.MapFS{"same.yaml": &fstest.MapFile{Data: []byte("b")}}
	if _, err := catalog.New(a, b); err == nil {
		t.Fatalf("expected cross-FS duplicate rejection")
	}
}
