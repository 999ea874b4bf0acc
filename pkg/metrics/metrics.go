// Package metrics exposes Prometheus instrumentation for the ingestion pipeline.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransactionsExtracted counts rows successfully parsed, per source bank.
	TransactionsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "financeia_transactions_extracted_total",
		Help: "Transactions extracted from uploaded statements.",
	}, []string{"bank"})

	// RowsSkipped counts malformed statement lines dropped during parsing.
	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "financeia_rows_skipped_total",
		Help: "Malformed statement lines skipped by the parsers.",
	}, []string{"bank"})

	// DuplicatesDetected counts extracted transactions flagged as already stored.
	DuplicatesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "financeia_duplicates_detected_total",
		Help: "Extracted transactions flagged as duplicates of stored ones.",
	})

	// TransactionsCommitted counts transactions persisted by the commit step.
	TransactionsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "financeia_transactions_committed_total",
		Help: "Transactions persisted by the import commit step.",
	})

	// InstallmentsCreated counts future installments synthesized at commit.
	InstallmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "financeia_installments_created_total",
		Help: "Future-dated installment transactions synthesized at commit.",
	})
)

// Serve starts the /metrics listener on the given port. Blocks.
func Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
