package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/batchlab"
	"github.com/zintix-labs/batchlab/dto"
	"github.com/zintix-labs/batchlab/errs"
	"github.com/zintix-labs/batchlab/server/httperr"
	"github.com/zintix-labs/batchlab/stats"
)

// 線上分析的上限：洗牌分析是 CPU-bound，epoch 數交給 runner 跑，
// 但 HTTP 入口要擋住惡意/誤帶的超大請求。
const (
	maxRunEpochs  = 100_000
	maxRunWorkers = 64
)

// RunResponse 是 /v1/run 的回應：最終報表加上用時。
type RunResponse struct {
	Report *stats.ShuffleReport `json:"report"`
	UsedMs int64                `json:"used_ms"`
}

func (c *RunHandler) Run(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeRunRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Epochs < 1 || req.Epochs > maxRunEpochs {
		httperr.Errs(w, errs.Warnf("epochs must be in [1, %d]", maxRunEpochs))
		return
	}
	if req.Workers > maxRunWorkers {
		httperr.Errs(w, errs.Warnf("workers must be <= %d", maxRunWorkers))
		return
	}

	var runner *batchlab.EpochRunner
	if req.Seed != nil {
		runner, err = c.lab.NewRunnerWithSeed(req.DatasetID, *req.Seed)
	} else {
		runner, err = c.lab.NewRunner(req.DatasetID)
	}
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	var (
		rep  *stats.ShuffleReport
		used time.Duration
	)
	if req.Workers > 1 {
		rep, used, err = runner.RunMP(req.Epochs, req.Workers, false)
	} else {
		rep, used, err = runner.Run(req.Epochs, false)
	}
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := RunResponse{Report: rep, UsedMs: used.Milliseconds()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// ============================================================
// ** RunHandler **
// ============================================================

type RunHandler struct {
	lab *batchlab.Batchlab
}

func NewRunHandler(lab *batchlab.Batchlab) *RunHandler {
	return &RunHandler{lab: lab}
}
