// Package metrics holds the Prometheus collectors of the ingestion and
// question answering pipelines. Collectors live on a private registry that
// is exposed over HTTP by long-running commands.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reportqa"

var (
	// Registry holds every reportqa collector.
	Registry = prometheus.NewRegistry()

	// ReportsAppended counts reports added to the catalog.
	ReportsAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_appended_total",
		Help:      "Reports appended to the catalog.",
	})

	// ReportsEnriched counts enrichment results by outcome (parsed, exhausted).
	ReportsEnriched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_enriched_total",
		Help:      "Reports given keyword enrichment, by outcome.",
	}, []string{"outcome"})

	// ChunksAdded counts chunks committed to the vector index.
	ChunksAdded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_added_total",
		Help:      "Chunks committed to the vector index.",
	})

	// ChunksSkipped counts deduplicated chunks by reason (in_run, indexed).
	ChunksSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_skipped_total",
		Help:      "Chunks skipped as duplicates, by reason.",
	}, []string{"reason"})

	// RateLimitWaits counts fixed-delay waits after rate limiting, by operation.
	RateLimitWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Waits caused by upstream rate limiting, by operation.",
	}, []string{"operation"})

	// RepairAttempts counts structured output attempts by operation and
	// result (parsed, invalid, exhausted).
	RepairAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repair_attempts_total",
		Help:      "Structured output attempts, by operation and result.",
	}, []string{"operation", "result"})

	// SummariesFiltered counts passage summaries discarded as irrelevant.
	SummariesFiltered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summaries_filtered_total",
		Help:      "Passage summaries discarded as irrelevant.",
	})

	// Questions counts answered questions by result (answered, no_references).
	Questions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "questions_total",
		Help:      "Questions processed, by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		ReportsAppended,
		ReportsEnriched,
		ChunksAdded,
		ChunksSkipped,
		RateLimitWaits,
		RepairAttempts,
		SummariesFiltered,
		Questions,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
