package vecio_test

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/batchlab/sdk/vecio"
)

func TestLoadPlainJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"vec.json": &fstest.MapFile{Data: []byte("[1.5, 2.5, 3.5]")},
	}
	got, err := vecio.Load(fsys, "vec.json")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	want := []float64{1.5, 2.5, 3.5}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d mismatch: %v", i, got)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	vec := []float64{0.25, -1, 42, 0}
	var buf bytes.Buffer
	if err := vecio.Save(&buf, vec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	fsys := fstest.MapFS{
		"vec.json.zst": &fstest.MapFile{Data: buf.Bytes()},
	}
	got, err := vecio.Load(fsys, "vec.json.zst")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("length mismatch: %v", got)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("element %d mismatch: %v", i, got)
		}
	}
}

func TestLoadRejects(t *testing.T) {
	fsys := fstest.MapFS{
		"vec.bin":  &fstest.MapFile{Data: []byte{1, 2, 3}},
		"bad.json": &fstest.MapFile{Data: []byte("{not json array}")},
	}
	if _, err := vecio.Load(nil, "vec.json"); err == nil {
		t.Fatalf("expected error for nil FS")
	}
	if _, err := vecio.Load(fsys, ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := vecio.Load(fsys, "vec.bin"); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if _, err := vecio.Load(fsys, "bad.json"); err == nil {
		t.Fatalf("expected error for malformed json")
	}
	if _, err := vecio.Load(fsys, "missing.json"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
