package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_queries_total",
			Help: "Total reading list queries by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	LargeResultSets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrimet_large_result_sets_total",
			Help: "Flat range queries whose total matching rows exceeded the warn threshold",
		},
	)

	ReadingsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimet_readings_imported_total",
			Help: "CSV import rows by outcome",
		},
		[]string{"status"},
	)
)
