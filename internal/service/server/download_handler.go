package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/service/downloader"
)

const maxRequestBody = 1 << 20

// DownloadHandler runs downloads on behalf of API callers
type DownloadHandler struct {
	downloader Downloader
	logger     *zap.Logger
}

// NewDownloadHandler creates a new DownloadHandler
func NewDownloadHandler(dl Downloader, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloader: dl,
		logger:     logger,
	}
}

type batchResponse struct {
	Results []*domain.DownloadResult `json:"results"`
	Errors  []string                 `json:"errors,omitempty"`
}

// HandleDownload handles POST /downloads. The body is one request object,
// or an array of them for a batch. The call blocks until every download
// finishes; a dropped connection cancels in-flight transfers.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&raw); err != nil {
		writeError(w, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidInput, err))
		return
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		h.handleBatch(w, r, trimmed)
		return
	}

	var req downloader.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request: %v", domain.ErrInvalidInput, err))
		return
	}

	result, err := h.downloader.Fetch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *DownloadHandler) handleBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	var reqs []downloader.Request
	if err := json.Unmarshal(body, &reqs); err != nil {
		writeError(w, fmt.Errorf("%w: malformed batch: %v", domain.ErrInvalidInput, err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, fmt.Errorf("%w: empty batch", domain.ErrInvalidInput))
		return
	}

	results, err := h.downloader.FetchAll(r.Context(), reqs)
	resp := batchResponse{Results: results}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
		h.logger.Info("batch finished with failures",
			zap.Int("requests", len(reqs)),
			zap.Int("failed", len(resp.Errors)))
	}
	writeJSON(w, status, resp)
}
