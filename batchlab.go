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

// Package batchlab 提供 Batchlab 引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// 你可以把 Batchlab 視為一個「可被後端/實驗工具使用的 runtime」，它負責把下列地基組裝在一起，並提供建立 VectorSequence 的入口：
//  1. Catalog：資料集目錄（Single Source of Truth / SSOT），定義有哪些資料集、各自對應的設定檔名稱（ConfigName）。
//  2. Data FS：向量 payload 來源（inline values 的資料集不需要）。
//  3. PRNGFactory：亂數核心工廠，保證可重現（reproducible）的 epoch 洗牌。
//
// 設計重點：
//   - Batchlab 本身不綁定任何「檔案路徑」概念：設定檔與 payload 來源一律以 fs.FS 的形式注入。
//   - VectorSequence 是對外提供 Batch / OnEpochEnd 的最小單位。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Batchlab 建立 BatchRuntime，對外提供批次查詢。
//   - 實驗工具（runner）：由 Batchlab 建立 EpochRunner 做多 epoch 洗牌品質分析。
package batchlab

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/batchlab/catalog"
	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/sdk/core"
	"github.com/zintix-labs/batchlab/sdk/vecio"
	"github.com/zintix-labs/batchlab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Batchlab 是「組裝器（assembler）」與「運行入口（runtime entry）」。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、檢查重複與缺漏。
//   - 執行階段（runtime）：依據資料集 ID 產生 VectorSequence / EpochRunner / BatchRuntime。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Batchlab instance」內。
//   - runtime 一旦開始（例如 BuildRuntime 之後），不允許再變更 Catalog。
type Batchlab struct {
	cat  *catalog.Catalog
	data fs.FS // 向量 payload 來源；全 inline 時可為 nil
	cf   core.PRNGFactory
	sum  []catalog.Summary
}

// New 建立一個 Batchlab instance。
//
// 參數要求（是合約的一部分）：
//   - cf 不能為 nil：沒有 PRNG 工廠就無法建立可重現的洗牌。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 DatasetSetting。
//   - dataFS 可為 nil，但此時所有資料集都必須使用 inline values。
func New(cf core.PRNGFactory, cfgs []fs.FS, dataFS fs.FS) (*Batchlab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Batchlab{
		cat:  cata,
		data: dataFS,
		cf:   cf,
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Batchlab instance：
// 掃描並註冊所有設定檔，然後 Freeze。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, dataFS fs.FS) (*Batchlab, error) {
	lab, err := New(cf, cfgs, dataFS)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (b *Batchlab) Register(ents ...catalog.Entry) error {
	return b.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）
// 解析成 *spec.DatasetSetting，並用設定檔內宣告的 DatasetID/DatasetName 產生對應的
// catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...) 一次性寫入，
//     不會出現只註冊一半的 catalog。
//  3. 穩定性：fs.WalkDir 依檔名排序，行為 determinism（方便重現與除錯）。
func (b *Batchlab) RegisterAll() error {
	cfgs := b.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.DID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				ds   *spec.DatasetSetting
				derr error
			)
			switch ext {
			case ".yaml", ".yml":
				ds, derr = spec.GetDatasetSettingByYAML(raw)
			case ".json":
				ds, derr = spec.GetDatasetSettingByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if derr != nil {
				return errs.NewFatal(fmt.Sprintf("parse dataset setting failed: %s", base))
			}

			name := strings.TrimSpace(ds.DatasetName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("dataset name required: %s", base))
			}

			id := ds.DatasetID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dataset id: %d (config=%s and %s)", id, prev, base))
			}
			if _, ok := b.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("dataset id already registered: %d (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dataset name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := b.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("dataset name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			// payload 來源檢查：path 來源需要 data FS，且檔案必須存在
			if !ds.Source.Inline() {
				if b.data == nil {
					return errs.NewFatal(fmt.Sprintf("dataset uses payload path but no data FS provided: %s (config=%s)", ds.Source.Path, base))
				}
				if _, serr := fs.Stat(b.data, ds.Source.Path); serr != nil {
					return errs.NewFatal(fmt.Sprintf("payload not found: %s (config=%s)", ds.Source.Path, base))
				}
			}

			entries = append(entries, catalog.Entry{
				DID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return b.cat.Register(entries...)
}

func (b *Batchlab) Freeze() {
	b.cat.Freeze()
}

func (b *Batchlab) EntryById(id spec.DID) (catalog.Entry, bool) {
	return b.cat.GetByID(id)
}

func (b *Batchlab) EntryByName(name string) (catalog.Entry, bool) {
	return b.cat.GetByName(name)
}

func (b *Batchlab) IDs() []spec.DID {
	return b.cat.IDs()
}

func (b *Batchlab) All() []catalog.Entry {
	return b.cat.All()
}

// Summary 列舉所有已註冊資料集的摘要（catalog 必須已 Freeze）。
// 結果會被快取；摘要不包含向量內容，只有設定層資訊。
func (b *Batchlab) Summary() ([]catalog.Summary, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if b.sum != nil {
		return b.sum, nil
	}
	ids := b.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ds, err := b.cat.DatasetSettingById(id)
		if err != nil {
			return nil, errs.NewFatal("parse dataset setting failed")
		}
		s := catalog.Summary{
			DID:       id,
			Name:      ds.DatasetName,
			BatchSize: ds.BatchSize,
			Seed:      ds.SeedValue(),
		}
		cs = append(cs, s)
	}
	b.sum = cs
	return b.sum, nil
}

// DatasetSettingById 透過 catalog 解析資料集設定（執行階段查詢入口）。
func (b *Batchlab) DatasetSettingById(id spec.DID) (*spec.DatasetSetting, error) {
	return b.cat.DatasetSettingById(id)
}

// loadVector 依設定取得資料向量：inline values 直接複製，payload path 經 vecio 載入。
func (b *Batchlab) loadVector(ds *spec.DatasetSetting) ([]float64, error) {
	if ds.Source.Inline() {
		vec := make([]float64, len(ds.Source.Values))
		copy(vec, ds.Source.Values)
		return vec, nil
	}
	return vecio.Load(b.data, ds.Source.Path)
}

// NewSequence 依據 Catalog 內的資料集 ID 建立一個 VectorSequence。
//
// 行為：
//  1. 由 Catalog 取得對應的 DatasetSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 依設定載入資料向量（inline 或 payload path）。
//  3. 以設定內的 seed（未指定時為 spec.DefaultSeed = 42）與 elapsed_epochs 建立序列。
//
// 注意：與對外服務的遊戲引擎不同，這裡「不」使用隨機出生 seed——
// 決定性本身就是產品；同一份設定必須在任何行程得到同一批次序列。
func (b *Batchlab) NewSequence(id spec.DID) (*VectorSequence, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := b.cat.DatasetSettingById(id)
	if err != nil {
		return nil, err
	}
	return b.newSequence(ds, ds.SeedValue(), ds.ElapsedEpochs)
}

// NewSequenceWithSeed 與 NewSequence 相同，但由呼叫端覆寫 seed 與 elapsed_epochs。
//
// 使用情境：
//   - 可重現的測試：同一份設定 + 同一個 seed，必須產生一致的批次序列。
//   - 續跑（resume）：帶入 checkpoint 記錄的 elapsed_epochs。
func (b *Batchlab) NewSequenceWithSeed(id spec.DID, seed int64, elapsedEpochs int) (*VectorSequence, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := b.cat.DatasetSettingById(id)
	if err != nil {
		return nil, err
	}
	return b.newSequence(ds, seed, elapsedEpochs)
}

// NewSequenceByYAML 以呼叫端提供的 YAML 設定建立序列（設定必須對應已註冊的資料集）。
func (b *Batchlab) NewSequenceByYAML(raw []byte) (*VectorSequence, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := spec.GetDatasetSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := b.validCfg(ds); err != nil {
		return nil, err
	}
	return b.newSequence(ds, ds.SeedValue(), ds.ElapsedEpochs)
}

// NewSequenceByJSON 以呼叫端提供的 JSON 設定建立序列（設定必須對應已註冊的資料集）。
func (b *Batchlab) NewSequenceByJSON(raw []byte) (*VectorSequence, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := spec.GetDatasetSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := b.validCfg(ds); err != nil {
		return nil, err
	}
	return b.newSequence(ds, ds.SeedValue(), ds.ElapsedEpochs)
}

func (b *Batchlab) validCfg(ds *spec.DatasetSetting) error {
	ent, ok := b.cat.GetByID(ds.DatasetID)
	if !ok {
		return errs.NewWarn("did not exist")
	}
	ent2, ok := b.cat.GetByName(ds.DatasetName)
	if !ok {
		return errs.NewWarn("dataset name not exist")
	}
	if ent.DID != ent2.DID {
		return errs.NewWarn("dataset id is not matched dataset name")
	}
	return nil
}

func (b *Batchlab) newSequence(ds *spec.DatasetSetting, seed int64, elapsedEpochs int) (*VectorSequence, error) {
	vec, err := b.loadVector(ds)
	if err != nil {
		return nil, err
	}
	return NewVectorSequence(ds.DatasetName, ds.DatasetID, vec, ds.BatchSize, seed, elapsedEpochs, b.cf)
}

// NewRunner 依據資料集 ID 建立一個 EpochRunner（洗牌品質分析工具）。
func (b *Batchlab) NewRunner(id spec.DID) (*EpochRunner, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := b.cat.DatasetSettingById(id)
	if err != nil {
		return nil, err
	}
	return b.newRunner(ds, ds.SeedValue())
}

// NewRunnerWithSeed 與 NewRunner 相同，但由呼叫端指定基底 seed。
func (b *Batchlab) NewRunnerWithSeed(id spec.DID, seed int64) (*EpochRunner, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := b.cat.DatasetSettingById(id)
	if err != nil {
		return nil, err
	}
	return b.newRunner(ds, seed)
}

// BuildRuntime 進入執行階段：為每個已註冊資料集建立一個受控序列。
//
// 與對外服務的引擎不同，這裡的 seed 一律取自設定檔（決定性是合約），
// 不用 crypto/rand 產生出生 seed。
func (b *Batchlab) BuildRuntime() (*BatchRuntime, error) {
	// 1. 進入 runtime 前，catalog 必須 Freeze
	b.Freeze()

	ids := b.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no datasets registered")
	}

	rt := &BatchRuntime{
		lab:  b,
		seqs: make(map[spec.DID]*managedSequence, len(ids)),
		ids:  ids,
		done: make(chan struct{}),
	}
	rt.reason.Store("")

	// 2. 先全建好（fail-fast）
	for _, id := range ids {
		vs, err := b.NewSequence(id)
		if err != nil {
			return nil, err
		}
		rt.seqs[id] = &managedSequence{vs: vs}
	}
	return rt, nil
}
