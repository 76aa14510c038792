// Package metrics содержит счётчики Prometheus для ядра сверки,
// публикуемые через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsClassified — строки импорта по присвоенной метке.
	RowsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workshop_registry",
		Subsystem: "reconcile",
		Name:      "rows_classified_total",
		Help:      "Import rows classified during staging, by label.",
	}, []string{"label"})

	// BatchesStaged — поставленные партии импорта.
	BatchesStaged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "workshop_registry",
		Subsystem: "reconcile",
		Name:      "batches_staged_total",
		Help:      "Reconciliation batches staged.",
	})

	// RowsCommitted — успешно зафиксированные строки.
	RowsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "workshop_registry",
		Subsystem: "reconcile",
		Name:      "rows_committed_total",
		Help:      "Rows committed successfully.",
	})

	// RowsCommitFailed — строки, отклонённые повторной проверкой при фиксации.
	RowsCommitFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "workshop_registry",
		Subsystem: "reconcile",
		Name:      "rows_commit_failed_total",
		Help:      "Rows rejected by commit-time re-validation.",
	})
)
