package spec

import (
	"encoding/json"

	"github.com/zintix-labs/batchlab/errs"
	"gopkg.in/yaml.v3"
)

// GetDatasetSettingByYAML
// 會讀取 YAML 設定、初始化並執行基本檢查後回傳。
func GetDatasetSettingByYAML(data []byte) (*DatasetSetting, error) {
	ds := &DatasetSetting{}
	if err := yaml.Unmarshal(data, ds); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}

	// 設定檔初始化
	if err := ds.init(); err != nil {
		return nil, errs.Wrap(err, "dataset setting initialized err")
	}

	return ds, nil
}

// GetDatasetSettingByJSON
// 會讀取 Json 設定、初始化並執行基本檢查後回傳
func GetDatasetSettingByJSON(data []byte) (*DatasetSetting, error) {
	ds := &DatasetSetting{}
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}

	// 設定檔初始化
	if err := ds.init(); err != nil {
		return nil, errs.Wrap(err, "dataset setting initialized err")
	}

	return ds, nil
}
