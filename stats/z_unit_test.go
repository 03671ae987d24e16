package stats_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zintix-labs/batchlab/stats"
)

func TestRecorderIdentityView(t *testing.T) {
	orig := []float64{1, 2, 3, 4, 5, 6}
	r, err := stats.NewEpochRecorder("wave", 1, 2, orig)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	r.Record(orig)
	rep := r.Done()
	rep.Done()

	if rep.Summary.Epochs != 1 {
		t.Fatalf("epochs got %d", rep.Summary.Epochs)
	}
	// identity 視圖：固定點比例 1、位移量 0
	if rep.Shuffle.FixedPointRate != 1 {
		t.Fatalf("fixed point rate got %f", rep.Shuffle.FixedPointRate)
	}
	if rep.Shuffle.MeanDisplacement != 0 {
		t.Fatalf("mean displacement got %f", rep.Shuffle.MeanDisplacement)
	}
	if rep.Summary.StepsPerEpoch != 3 {
		t.Fatalf("steps got %d", rep.Summary.StepsPerEpoch)
	}
}

func TestRecorderReversedView(t *testing.T) {
	orig := []float64{1, 2, 3, 4}
	r, err := stats.NewEpochRecorder("wave", 1, 2, orig)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	r.Record([]float64{4, 3, 2, 1})
	rep := r.Done()
	rep.Done()

	// 位移量 (3+1+1+3)/4 = 2
	if rep.Shuffle.MeanDisplacement != 2 {
		t.Fatalf("mean displacement got %f", rep.Shuffle.MeanDisplacement)
	}
	if rep.Shuffle.FixedPointRate != 0 {
		t.Fatalf("fixed point rate got %f", rep.Shuffle.FixedPointRate)
	}
}

func TestRecorderRejectsForeignView(t *testing.T) {
	orig := []float64{1, 2, 3}
	r, err := stats.NewEpochRecorder("wave", 1, 1, orig)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	r.Record([]float64{1, 2, 99})
	rep := r.Done()
	if rep.Summary.Epochs != 0 || rep.Summary.BadViews != 1 {
		t.Fatalf("foreign view must be counted as bad: %+v", rep.Summary)
	}
}

func TestRecorderBatchMeans(t *testing.T) {
	orig := []float64{2, 4, 6, 8}
	r, err := stats.NewEpochRecorder("wave", 1, 2, orig)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	r.RecordBatch([]float64{2, 4})
	r.RecordBatch([]float64{6, 8})
	rep := r.Done()
	rep.Done()

	if rep.Batch.Count != 2 {
		t.Fatalf("batch count got %d", rep.Batch.Count)
	}
	if rep.Batch.MinMean != 3 || rep.Batch.MaxMean != 7 || rep.Batch.Mean != 5 {
		t.Fatalf("batch means got %+v", rep.Batch)
	}
}

func TestMergeEpochRecorder(t *testing.T) {
	orig := []float64{1, 2, 3, 4}
	a, _ := stats.NewEpochRecorder("wave", 1, 2, orig)
	b, _ := stats.NewEpochRecorder("wave", 1, 2, orig)
	a.Record(orig)
	b.Record([]float64{4, 3, 2, 1})
	a.RecordBatch([]float64{1, 2})
	b.RecordBatch([]float64{3, 4})

	m, err := stats.MergeEpochRecorder([]*stats.EpochRecorder{a, b})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	rep := m.Done()
	rep.Done()
	if rep.Summary.Epochs != 2 {
		t.Fatalf("merged epochs got %d", rep.Summary.Epochs)
	}
	if rep.Batch.Count != 2 {
		t.Fatalf("merged batch count got %d", rep.Batch.Count)
	}

	c, _ := stats.NewEpochRecorder("other", 1, 2, orig)
	if _, err := stats.MergeEpochRecorder([]*stats.EpochRecorder{a, c}); err == nil {
		t.Fatalf("expected mismatch rejection")
	}
}

func TestRenderers(t *testing.T) {
	orig := []float64{1, 2, 3, 4}
	r, _ := stats.NewEpochRecorder("wave", 1, 2, orig)
	r.Record(orig)
	rep := r.Done()

	var jbuf bytes.Buffer
	if err := rep.WriteWith(&jbuf, &stats.JsonShuffleReportRender{}); err != nil {
		t.Fatalf("json render: %v", err)
	}
	if !strings.Contains(jbuf.String(), `"DatasetName":"wave"`) {
		t.Fatalf("json output missing fields: %s", jbuf.String())
	}

	var ybuf bytes.Buffer
	if err := rep.WriteWith(&ybuf, &stats.YAMLShuffleReportRender{}); err != nil {
		t.Fatalf("yaml render: %v", err)
	}
	if !strings.Contains(ybuf.String(), "DatasetName: wave") {
		t.Fatalf("yaml output missing fields: %s", ybuf.String())
	}
}
