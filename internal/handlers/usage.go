package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// UsageAnalyzer finds where a single image is used
type UsageAnalyzer interface {
	AnalyzeImageUsage(ctx context.Context, assetUID, locale string) ([]pipeline.UsageSummary, error)
}

// UsageHandler serves interactive usage lookups
type UsageHandler struct {
	analyzer UsageAnalyzer
}

// NewUsageHandler creates a usage handler
func NewUsageHandler(analyzer UsageAnalyzer) *UsageHandler {
	return &UsageHandler{analyzer: analyzer}
}

// HandleUsages handles GET /v1/assets/{uid}/usages?locale=
func (h *UsageHandler) HandleUsages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid := strings.TrimSpace(r.PathValue("uid"))
	if uid == "" {
		http.Error(w, "asset uid is required", http.StatusBadRequest)
		return
	}
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = pipeline.DefaultLocale
	}

	usages, err := h.analyzer.AnalyzeImageUsage(r.Context(), uid, locale)
	if err != nil {
		log.Error().Err(err).Str("asset_uid", uid).Str("locale", locale).Msg("Usage analysis failed")
		code := http.StatusInternalServerError
		if usage.IsFatal(err) {
			code = http.StatusBadGateway
		}
		http.Error(w, fmt.Sprintf("Usage analysis failed: %v", err), code)
		return
	}

	resp := pipeline.AssetUsages{
		UID:         uid,
		Locale:      locale,
		UsageStatus: pipeline.UsageUnused,
		Keys:        []string{},
		Usages:      usages,
	}
	if resp.Usages == nil {
		resp.Usages = []pipeline.UsageSummary{}
	}
	seen := make(map[string]bool)
	for _, u := range resp.Usages {
		resp.UsageStatus = pipeline.UsageUsed
		if !seen[u.Key] {
			seen[u.Key] = true
			resp.Keys = append(resp.Keys, u.Key)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
