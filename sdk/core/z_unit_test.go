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

package core

import (
	"slices"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default().New(7))
	c2 := New(Default().New(7))
	for i := 0; i < 5; i++ {
		if c1.Uint64() != c2.Uint64() {
			t.Fatalf("Uint64 mismatch at %d", i)
		}
	}
	if c1.IntN(10) != c2.IntN(10) {
		t.Fatalf("IntN mismatch")
	}
	if c1.UintN(10) != c2.UintN(10) {
		t.Fatalf("UintN mismatch")
	}
}

func TestCorePickAndShuffle(t *testing.T) {
	c := New(Default().New(9))
	if got := c.Pick(nil); got != -1 {
		t.Fatalf("expected -1 for empty pick, got %d", got)
	}

	src := []int{1, 2, 3, 4}
	c.ShuffleInts(src)
	if len(src) != 4 {
		t.Fatalf("unexpected length after shuffle")
	}
	want := []int{1, 2, 3, 4}
	got := slices.Clone(src)
	slices.Sort(want)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestCorePerm(t *testing.T) {
	c1 := New(Default().New(43))
	c2 := New(Default().New(43))

	p1 := c1.Perm(10)
	p2 := c2.Perm(10)
	if !slices.Equal(p1, p2) {
		t.Fatalf("Perm not deterministic: %v vs %v", p1, p2)
	}

	sorted := slices.Clone(p1)
	slices.Sort(sorted)
	for i, v := range sorted {
		if v != i {
			t.Fatalf("Perm is not a permutation of [0,10): %v", p1)
		}
	}

	if got := c1.Perm(0); len(got) != 0 {
		t.Fatalf("Perm(0) must be empty, got %v", got)
	}
	if got := c1.Perm(-3); len(got) != 0 {
		t.Fatalf("Perm(-3) must be empty, got %v", got)
	}
}

func TestPermMatchesShuffledIdentity(t *testing.T) {
	// Perm 與「identity + ShuffleInts」必須走同一條路徑
	c1 := New(Default().New(5))
	c2 := New(Default().New(5))

	p := c1.Perm(16)
	id := make([]int, 16)
	for i := range id {
		id[i] = i
	}
	c2.ShuffleInts(id)
	if !slices.Equal(p, id) {
		t.Fatalf("Perm diverged from ShuffleInts: %v vs %v", p, id)
	}
}

func TestShuffleFloat64sKeepsElements(t *testing.T) {
	c := New(Default().New(21))
	src := []float64{0.5, 1.5, 2.5, 3.5, 4.5}
	c.ShuffleFloat64s(src)
	want := []float64{0.5, 1.5, 2.5, 3.5, 4.5}
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestPCG32SnapshotRestore(t *testing.T) {
	r := NewPCG32WithSeed(99)
	_ = r.Uint32()
	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	a := r.Uint64()

	r2 := NewPCG32WithSeed(1)
	if err := r2.Restore(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	b := r2.Uint64()
	if a != b {
		t.Fatalf("restored stream mismatch: %d vs %d", a, b)
	}

	if err := r2.Restore([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short snapshot")
	}
}

func TestPCG64SnapshotRestore(t *testing.T) {
	r := NewPCG64WithSeed(1234)
	_ = r.Uint64()
	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	a := r.Uint64()

	other := NewPCG64WithSeed(1)
	if err := other.Restore(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if b := other.Uint64(); a != b {
		t.Fatalf("restored stream mismatch: %d vs %d", a, b)
	}
}
