// Package metrics registers the Prometheus collectors of the pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alt_pipeline"

var (
	// CMSRequests counts management API calls by operation and outcome.
	CMSRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cms_requests_total",
		Help:      "CMS management API requests by operation and outcome.",
	}, []string{"op", "outcome"})

	// LLMRequests counts batch API calls by operation and outcome.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "LLM batch API requests by operation and outcome.",
	}, []string{"op", "outcome"})

	// TitleLookups counts metadata title lookups by cache and result (hit, fetched, fallback).
	TitleLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "title_lookups_total",
		Help:      "Content type and component title lookups.",
	}, []string{"cache", "result"})

	ImagesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_analyzed_total",
		Help:      "Images whose usages were analyzed.",
	})

	UsagesFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usages_found_total",
		Help:      "Usage sites found across analyzed images.",
	})

	UsageAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usage_anomalies_total",
		Help:      "Images with references but no resolved usage site.",
	})

	BatchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_requests_prepared_total",
		Help:      "ALT text requests written to batch files.",
	})

	// AssetUpdates counts description write-backs by outcome.
	AssetUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "asset_updates_total",
		Help:      "Asset description updates by outcome.",
	}, []string{"outcome"})

	// WorkflowRuns counts finished pipeline jobs by job and outcome.
	WorkflowRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_runs_total",
		Help:      "Pipeline job executions by job and outcome.",
	}, []string{"job", "outcome"})
)

// Outcome returns the label value for an error result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
