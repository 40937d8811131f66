package main

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triagebot",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache reads that returned a live entry.",
	})
	metricCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triagebot",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache reads that degraded to a miss, including transport failures.",
	})
	metricBatchesClustered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triagebot",
		Subsystem: "clustering",
		Name:      "batches_total",
		Help:      "Ticket batches clustered successfully.",
	})
	metricIntentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triagebot",
		Subsystem: "clustering",
		Name:      "intents_created_total",
		Help:      "Intents minted by create_new decisions.",
	})
	metricIntentsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triagebot",
		Subsystem: "clustering",
		Name:      "intents_matched_total",
		Help:      "Tickets linked to an existing intent.",
	})
	metricReasoningFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triagebot",
		Subsystem: "clustering",
		Name:      "reasoning_failures_total",
		Help:      "Reasoning-service calls that failed in transport.",
	})
)

// StartMetricsServer exposes /metrics on addr when configured.
func StartMetricsServer(addr string) {
	if addr == "" {
		log.Println("Metrics listener disabled (metrics_addr not set)")
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("Metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Metrics listener error: %v", err)
		}
	}()
}
