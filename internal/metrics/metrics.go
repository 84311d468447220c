// Package metrics provides Prometheus metrics for measurement sessions
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultRange    = "out_of_range"
	ResultError    = "error"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	DrawingsLoaded     *prometheus.CounterVec
	EntitiesExtracted  *prometheus.CounterVec
	LoadDuration       prometheus.Histogram
	Picks              *prometheus.CounterVec
	ToleranceLookups   *prometheus.CounterVec
	ExportsTotal       *prometheus.CounterVec
	ExportDuration     prometheus.Histogram
	ExportCellsWritten prometheus.Counter
}

// New registers the collectors with reg. A nil reg creates an unregistered
// set, which is what tests and one-shot commands use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DrawingsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpa_drawings_loaded_total",
				Help: "Total number of drawing load attempts",
			},
			[]string{"status"},
		),
		EntitiesExtracted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpa_entities_extracted_total",
				Help: "Total number of pickable entities extracted from drawings",
			},
			[]string{"kind"},
		),
		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mpa_drawing_load_duration_seconds",
				Help:    "Time taken to read and extract a drawing",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		Picks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpa_picks_total",
				Help: "Total number of pick requests",
			},
			[]string{"result"},
		),
		ToleranceLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpa_tolerance_lookups_total",
				Help: "Total number of tolerance lookups",
			},
			[]string{"result"},
		),
		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpa_exports_total",
				Help: "Total number of protocol exports",
			},
			[]string{"status"},
		),
		ExportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mpa_export_duration_seconds",
				Help:    "Time taken to export a protocol",
				Buckets: prometheus.DefBuckets,
			},
		),
		ExportCellsWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mpa_export_cells_written_total",
				Help: "Total number of cells written by exports",
			},
		),
	}
}

// RecordLoad records a drawing load.
func (m *Metrics) RecordLoad(status string, entities map[string]int, duration time.Duration) {
	m.DrawingsLoaded.WithLabelValues(status).Inc()
	m.LoadDuration.Observe(duration.Seconds())
	for kind, n := range entities {
		m.EntitiesExtracted.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordPick records a pick result.
func (m *Metrics) RecordPick(hit bool) {
	if hit {
		m.Picks.WithLabelValues(ResultHit).Inc()
	} else {
		m.Picks.WithLabelValues(ResultMiss).Inc()
	}
}

// RecordLookup records a tolerance lookup result.
func (m *Metrics) RecordLookup(result string) {
	m.ToleranceLookups.WithLabelValues(result).Inc()
}

// RecordExport records an export.
func (m *Metrics) RecordExport(status string, cells int, duration time.Duration) {
	m.ExportsTotal.WithLabelValues(status).Inc()
	m.ExportDuration.Observe(duration.Seconds())
	m.ExportCellsWritten.Add(float64(cells))
}
