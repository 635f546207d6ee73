// Package metrics defines the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsIngested counts sampled records accepted per source.
	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asyncdoc_records_ingested_total",
		Help: "Number of sampled message records accepted.",
	}, []string{"source"})

	// RecordsRejected counts records dropped at the boundary.
	RecordsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asyncdoc_records_rejected_total",
		Help: "Number of sampled message records rejected at the boundary.",
	}, []string{"source"})

	// SchemasRegistered counts schema registrations across all builds.
	SchemasRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asyncdoc_schemas_registered_total",
		Help: "Number of schema fragments registered during document builds.",
	})

	// DocumentsBuilt counts full document assemblies.
	DocumentsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asyncdoc_documents_built_total",
		Help: "Number of times a document was assembled from a session.",
	})

	// FeedReconnects counts MQTT reconnect attempts.
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asyncdoc_feed_reconnects_total",
		Help: "Number of reconnect attempts of the live feed.",
	})
)
