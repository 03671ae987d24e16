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

package api

import (
	"log/slog"
	"net/http"

	v1 "github.com/zintix-labs/batchlab/server/api/v1"
	"github.com/zintix-labs/batchlab/server/netsvr"
	"github.com/zintix-labs/batchlab/server/netsvr/middleware"
	"github.com/zintix-labs/batchlab/server/svrcfg"
)

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerIndex(svr)                // 2. 註冊主頁
	return registerV1API(svr, sCfg)   // 3. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover)
	svr.Use(middleware.Compression)
}

// 註冊主頁
func registerIndex(svr netsvr.NetSvr) {
	svr.Get("/", func(w http.ResponseWriter, q *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("batchlab\n\nGET  /v1/catalog\nGET  /v1/batch?did=&idx=\nPOST /v1/epoch\nPOST /v1/run\nGET  /v1/metrics\n"))
	})
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	b, err := v1.NewBatchHandler(sCfg)
	if err != nil {
		return err
	}
	r := v1.NewRunHandler(sCfg.Batchlab)
	c := v1.NewCatalogHandler(sCfg.Batchlab)

	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/batch", b.Batch)
		vOne.Get("/epoch", b.EpochEnd)
		vOne.Get("/catalog", c.Summary)
		vOne.Get("/metrics", b.Metrics)
		vOne.Get("/run", r.Run)

		vOne.Post("/batch", b.Batch)
		vOne.Post("/epoch", b.EpochEnd)
		vOne.Post("/run", r.Run)
	})
	return nil
}
