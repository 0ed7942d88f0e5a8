// Package metrics holds the Prometheus instruments for the continuity lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "acf"

var (
	// FinalizeTotal counts finalize outcomes.
	// Labels: result (ok, checkpoint_fail, consent_required)
	FinalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "finalize_total",
			Help:      "Total number of finalize calls by result",
		},
		[]string{"result"},
	)

	// MemoryPersistErrors counts finalize calls whose memory write failed.
	MemoryPersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "memory_persist_errors_total",
			Help:      "Total number of memory writes that failed during finalize",
		},
	)

	// CheckpointFindings counts findings produced by checkpoint rules.
	// Labels: rule, severity
	CheckpointFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "findings_total",
			Help:      "Total number of checkpoint findings by rule and severity",
		},
		[]string{"rule", "severity"},
	)

	// AuditEntries counts audit writes.
	// Labels: action
	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total number of audit entries recorded by action",
		},
		[]string{"action"},
	)

	// DriftScans counts consent drift scans.
	// Labels: due (true, false)
	DriftScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consent",
			Name:      "drift_scans_total",
			Help:      "Total number of consent drift scans by outcome",
		},
		[]string{"due"},
	)

	// MemoryUpserts counts memory entries written.
	// Labels: kind
	MemoryUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "upserts_total",
			Help:      "Total number of memory entries written by kind",
		},
		[]string{"kind"},
	)

	// MemoryDecayed counts Fleeting entries removed by decay sweeps.
	MemoryDecayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "decayed_total",
			Help:      "Total number of fleeting memories removed by decay",
		},
	)

	// MemoryEntries reports the size of the memory collection after the last write.
	MemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "entries",
			Help:      "Number of stored memory entries",
		},
	)
)
