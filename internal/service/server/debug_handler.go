package server

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/port"
	"github.com/vertextoedge/mcfetch/internal/service/gate"
	"github.com/vertextoedge/mcfetch/internal/service/resolver"
)

// DebugHandler handles debug endpoint requests
type DebugHandler struct {
	downloader Downloader
	versions   VersionResolver
	store      port.Store
	metrics    *event.MetricsHandler
	logger     *zap.Logger
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(dl Downloader, versions VersionResolver, store port.Store, metrics *event.MetricsHandler, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{
		downloader: dl,
		versions:   versions,
		store:      store,
		metrics:    metrics,
		logger:     logger,
	}
}

type ledgerStats struct {
	Artifacts  int64  `json:"artifacts"`
	TotalBytes int64  `json:"total_bytes"`
	TotalHuman string `json:"total_human"`
}

type statsResponse struct {
	Gate     map[string]gate.PoolStats `json:"gate"`
	Versions resolver.Stats            `json:"versions"`
	Ledger   *ledgerStats              `json:"ledger,omitempty"`
	Events   map[string]int64          `json:"events,omitempty"`
}

// HandleStats handles debug statistics requests
func (h *DebugHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statsResponse{
		Gate:     h.downloader.Stats(),
		Versions: h.versions.Stats(),
	}

	if h.store != nil {
		count, total, err := h.store.CountArtifacts()
		if err != nil {
			h.logger.Error("failed to get ledger stats", zap.Error(err))
			http.Error(w, "Failed to get ledger stats", http.StatusInternalServerError)
			return
		}
		resp.Ledger = &ledgerStats{
			Artifacts:  count,
			TotalBytes: total,
			TotalHuman: humanize.Bytes(uint64(total)),
		}
	}

	if h.metrics != nil {
		resp.Events = h.metrics.GetMetrics()
	}

	writeJSON(w, http.StatusOK, resp)
}
