package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/batchlab"
	"github.com/zintix-labs/batchlab/dto"
	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/server/httperr"
	"github.com/zintix-labs/batchlab/server/svrcfg"
)

func (c *BatchHandler) Batch(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeBatchRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// 請求解析完成，設置超時 context
	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 取批次
	result, err := c.rt.Batch(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

func (c *BatchHandler) EpochEnd(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeEpochRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := c.rt.EpochEnd(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

func (c *BatchHandler) Metrics(w http.ResponseWriter, q *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.rt.Metrics()); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// ============================================================
// ** BatchHandler **
// ============================================================

type BatchHandler struct {
	rt *batchlab.BatchRuntime
}

func NewBatchHandler(sCfg *svrcfg.SvrCfg) (*BatchHandler, error) {
	rt, err := sCfg.Batchlab.BuildRuntime()
	if err != nil {
		return nil, errs.Wrap(err, "build batch handler error")
	}
	return &BatchHandler{rt: rt}, nil
}
