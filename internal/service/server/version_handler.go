package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// VersionHandler serves loader version lookups
type VersionHandler struct {
	resolver VersionResolver
	logger   *zap.Logger
}

// NewVersionHandler creates a new VersionHandler
func NewVersionHandler(resolver VersionResolver, logger *zap.Logger) *VersionHandler {
	return &VersionHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// versionView is the wire form of a domain.LoaderVersion
type versionView struct {
	Version    string `json:"version"`
	Normalized string `json:"normalized,omitempty"`
	Stable     bool   `json:"stable"`
}

func toView(v domain.LoaderVersion) versionView {
	view := versionView{Version: v.Raw}
	if v.IsParsed() {
		view.Normalized = v.Parsed.String()
		view.Stable = v.Prerelease() == ""
	}
	return view
}

// HandleList handles GET /versions?loader=&mc=
func (h *VersionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	loader, mc := queryParams(r)
	versions, err := h.resolver.GetVersions(r.Context(), loader, mc)
	if err != nil {
		h.logger.Debug("version lookup failed",
			zap.String("loader", loader),
			zap.String("mc_version", mc),
			zap.Error(err))
		writeError(w, err)
		return
	}

	views := make([]versionView, len(versions))
	for i, v := range versions {
		views[i] = toView(v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loader":     loader,
		"mc_version": mc,
		"versions":   views,
	})
}

// HandleLatest handles GET /versions/latest?loader=&mc=&constraint=
func (h *VersionHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	loader, mc := queryParams(r)
	constraint := strings.TrimSpace(r.URL.Query().Get("constraint"))

	v, err := h.resolver.Resolve(r.Context(), loader, mc, constraint)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loader":     loader,
		"mc_version": mc,
		"constraint": constraint,
		"version":    toView(v),
	})
}

func queryParams(r *http.Request) (loader, mc string) {
	q := r.URL.Query()
	return strings.ToLower(strings.TrimSpace(q.Get("loader"))), strings.TrimSpace(q.Get("mc"))
}
