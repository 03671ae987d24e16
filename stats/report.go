package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/batchlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

var lang language.Tag = language.English

// ShuffleReport 洗牌統計報告
type ShuffleReport struct {
	Summary *SummaryReport   `json:"Summary"`
	Shuffle *ShuffleQuality  `json:"Shuffle"`
	Batch   *BatchUniformity `json:"Batch"`
	isDone  bool
}

type SummaryReport struct {
	DatasetName   string   `json:"DatasetName"`
	DatasetID     spec.DID `json:"DatasetID"`
	Samples       int      `json:"Samples"`
	BatchSize     int      `json:"BatchSize"`
	StepsPerEpoch int      `json:"StepsPerEpoch"`
	Epochs        int      `json:"Epochs"`
	BadViews      int      `json:"BadViews"`
}

// ShuffleQuality 洗牌品質統計
//
// 紀錄時只累積計數，避免每 epoch 的轉型成本。紀錄完成後 Done() 會將結果整理填入。
type ShuffleQuality struct {
	FixedPoints       int     `json:"FixedPoints"`       // 各 epoch 固定點總數
	Displacement      float64 `json:"Displacement"`      // 各 epoch 位移量總和
	FixedPointRate    float64 `json:"FixedPointRate"`    // 平均每 epoch 固定點比例（隨機排列期望 ~ 1/N）
	MeanDisplacement  float64 `json:"MeanDisplacement"`  // 平均每元素位移量
	IdealDisplacement float64 `json:"IdealDisplacement"` // 均勻隨機排列的期望位移量 (N²-1)/(3N)
	DisplacementRatio float64 `json:"DisplacementRatio"` // Mean / Ideal，越接近 1 越接近均勻洗牌
}

// BatchUniformity 批次間均勻度統計
type BatchUniformity struct {
	Means   []float64 `json:"-"` // 原始批次均值（Done 後清空，避免巨量輸出）
	Count   int       `json:"Count"`
	Mean    float64   `json:"Mean"`
	Std     float64   `json:"Std"`
	MinMean float64   `json:"MinMean"`
	MaxMean float64   `json:"MaxMean"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 統計過程因性能原因只累積原始計數，統計完成後請使用 Done 一次性計算結果。
func (s *ShuffleReport) Done() {
	if s.isDone {
		return
	}

	// Shuffle
	n := float64(s.Summary.Samples)
	e := float64(s.Summary.Epochs)
	if n > 0 && e > 0 {
		s.Shuffle.FixedPointRate = float64(s.Shuffle.FixedPoints) / (n * e)
		s.Shuffle.MeanDisplacement = s.Shuffle.Displacement / (n * e)
	}
	if n > 0 {
		s.Shuffle.IdealDisplacement = (n*n - 1) / (3 * n)
	}
	if s.Shuffle.IdealDisplacement > 0 {
		s.Shuffle.DisplacementRatio = s.Shuffle.MeanDisplacement / s.Shuffle.IdealDisplacement
	}

	// Batch
	s.Batch.Count = len(s.Batch.Means)
	if s.Batch.Count > 0 {
		s.Batch.Mean = stat.Mean(s.Batch.Means, nil)
		s.Batch.MinMean = s.Batch.Means[0]
		s.Batch.MaxMean = s.Batch.Means[0]
		for _, m := range s.Batch.Means {
			s.Batch.MinMean = math.Min(s.Batch.MinMean, m)
			s.Batch.MaxMean = math.Max(s.Batch.MaxMean, m)
		}
	}
	if s.Batch.Count > 1 {
		s.Batch.Std = stat.StdDev(s.Batch.Means, nil)
	}
	s.Batch.Means = nil

	s.isDone = true
}

func (s *ShuffleReport) WriteWith(w io.Writer, rep ShuffleReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *ShuffleReport) StdOut(ut time.Duration) {
	formatDuration(ut, s.Summary.Epochs)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.DatasetName, sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, epochs int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	eps := int(float64(epochs) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\neps : %d epochs/sec\n", sec, eps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\neps : %d epochs/sec\n", m, s, eps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\neps : %d epochs/sec\n", h, m, s, eps)
}

// StdOut

func (s *ShuffleReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Dataset Name":  p.Sprintf("%s", s.Summary.DatasetName),
		"Dataset ID":    fmt.Sprintf("%d", s.Summary.DatasetID),
		"Samples":       p.Sprintf("%d", s.Summary.Samples),
		"Batch Size":    p.Sprintf("%d", s.Summary.BatchSize),
		"Steps/Epoch":   p.Sprintf("%d", s.Summary.StepsPerEpoch),
		"Total Epochs":  p.Sprintf("%d", s.Summary.Epochs),
		"Fixed Points":  p.Sprintf("%.4f", s.Shuffle.FixedPointRate),
		"Displacement":  p.Sprintf("%.3f", s.Shuffle.MeanDisplacement),
		"Disp. Ratio":   p.Sprintf("%.3f", s.Shuffle.DisplacementRatio),
		"Batches":       p.Sprintf("%d", s.Batch.Count),
		"Batch Mean":    p.Sprintf("%.4f", s.Batch.Mean),
		"Batch Mean SD": p.Sprintf("%.4f", s.Batch.Std),
	}
	keys := []string{"Dataset Name", "Dataset ID", "Samples", "Batch Size", "Steps/Epoch", "Total Epochs", "Fixed Points", "Displacement", "Disp. Ratio", "Batches", "Batch Mean", "Batch Mean SD"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
