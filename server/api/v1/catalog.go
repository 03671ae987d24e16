package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/batchlab"
	"github.com/zintix-labs/batchlab/server/httperr"
)

// Summary 列出所有已註冊資料集的摘要（不含向量內容）。
func (c *CatalogHandler) Summary(w http.ResponseWriter, q *http.Request) {
	sum, err := c.lab.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// ============================================================
// ** CatalogHandler **
// ============================================================

type CatalogHandler struct {
	lab *batchlab.Batchlab
}

func NewCatalogHandler(lab *batchlab.Batchlab) *CatalogHandler {
	return &CatalogHandler{lab: lab}
}
