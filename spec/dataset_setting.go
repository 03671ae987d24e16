package spec

import (
	"fmt"
	"strings"

	"github.com/zintix-labs/batchlab/errs"
)

// DatasetSetting 包含建立一個批次序列（sequence）所需的所有高階設定。
type DatasetSetting struct {
	DatasetName   string        `yaml:"dataset_name"    json:"dataset_name"`
	DatasetID     DID           `yaml:"dataset_id"      json:"dataset_id"`
	BatchSize     int           `yaml:"batch_size"      json:"batch_size"`
	Seed          *int64        `yaml:"seed"            json:"seed"`           // 省略時使用 DefaultSeed
	ElapsedEpochs int           `yaml:"elapsed_epochs"  json:"elapsed_epochs"` // 續跑（resume）時的已完成 epoch 數
	Source        SourceSetting `yaml:"source"          json:"source"`
}

// SourceSetting 描述資料向量的來源，inline values 與 payload path 擇一。
type SourceSetting struct {
	Values []float64 `yaml:"values" json:"values"` // inline 向量
	Path   string    `yaml:"path"   json:"path"`   // data FS 內的 .json / .json.zst 檔
}

// SeedValue 回傳已解析的 seed（未指定時為 DefaultSeed）。
func (ds *DatasetSetting) SeedValue() int64 {
	if ds.Seed == nil {
		return DefaultSeed
	}
	return *ds.Seed
}

// Inline 回報資料向量是否直接寫在設定內。
func (ss *SourceSetting) Inline() bool {
	return len(ss.Values) > 0
}

// init
func (ds *DatasetSetting) init() error {
	return ds.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (ds *DatasetSetting) valid() error {

	if strings.TrimSpace(ds.DatasetName) == "" {
		return errs.NewFatal("dataset_name required")
	}

	// batch_size 是 steps_per_epoch = ceil(N/B) 的分母，必須為正
	if ds.BatchSize < 1 {
		return errs.NewFatal(fmt.Sprintf("dataset_name: %s err:batch_size must be > 0", ds.DatasetName))
	}

	if ds.ElapsedEpochs < 0 {
		return errs.NewFatal(fmt.Sprintf("dataset_name: %s err:elapsed_epochs must be >= 0", ds.DatasetName))
	}

	// source 檢查：inline values 與 path 擇一
	hasValues := len(ds.Source.Values) > 0
	hasPath := ds.Source.Path != ""
	if hasValues == hasPath {
		return errs.NewFatal(fmt.Sprintf("dataset_name: %s err:source needs exactly one of values/path", ds.DatasetName))
	}
	if hasPath {
		lower := strings.ToLower(ds.Source.Path)
		if !(strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".json.zst")) {
			return errs.NewFatal(fmt.Sprintf("dataset_name: %s err:source path must end with .json or .json.zst", ds.DatasetName))
		}
	}

	return nil
}
