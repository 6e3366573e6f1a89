package handlers

import (
	"net/http"

	"github.com/tendant/simple-alt-pipeline/internal/metrics"
)

// NewMux wires the worker API
func NewMux(runner JobRunner, analyzer UsageAnalyzer) *http.ServeMux {
	async := NewAsyncHandler(runner)
	usages := NewUsageHandler(analyzer)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HandleHealth)
	mux.HandleFunc("/v1/process", async.HandleProcessAsync)
	mux.HandleFunc("/v1/runs/{id}", async.HandleStatus)
	mux.HandleFunc("/v1/assets/{uid}/usages", usages.HandleUsages)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
