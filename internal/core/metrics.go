package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the construction metrics of a job. A nil *Metrics records nothing.
type Metrics struct {
	constructions *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	volumes       *prometheus.GaugeVec
	media         prometheus.Gauge
	limitsRecords prometheus.Gauge
	fieldAdapters *prometheus.CounterVec
	fieldWarnings prometheus.Counter
}

// NewMetrics registers the metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		constructions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trackgeo_constructions_total",
			Help: "Geometry constructions by source and result",
		}, []string{"source", "result"}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trackgeo_phase_duration_seconds",
			Help:    "Duration of construction phases in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"phase"}),
		volumes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trackgeo_volumes",
			Help: "Volumes in the native graph by kind",
		}, []string{"kind"}),
		media: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trackgeo_media",
			Help: "Media in the medium map",
		}),
		limitsRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trackgeo_limits_records",
			Help: "Shared step-limit records",
		}),
		fieldAdapters: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trackgeo_field_adapters_total",
			Help: "ConstructSDAndField calls by whether a field adapter exists",
		}, []string{"field"}),
		fieldWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackgeo_field_update_warnings_total",
			Help: "UpdateMagField calls without a field adapter",
		}),
	}
}

func (m *Metrics) observePhase(phase string, start time.Time) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func (m *Metrics) construction(source string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.constructions.WithLabelValues(source, result).Inc()
}

func (m *Metrics) graph(logical, physical, media int) {
	if m == nil {
		return
	}
	m.volumes.WithLabelValues("logical").Set(float64(logical))
	m.volumes.WithLabelValues("physical").Set(float64(physical))
	m.media.Set(float64(media))
}

func (m *Metrics) limits(records int) {
	if m == nil {
		return
	}
	m.limitsRecords.Set(float64(records))
}

func (m *Metrics) field(present bool) {
	if m == nil {
		return
	}
	label := "none"
	if present {
		label = "present"
	}
	m.fieldAdapters.WithLabelValues(label).Inc()
}

func (m *Metrics) fieldWarning() {
	if m == nil {
		return
	}
	m.fieldWarnings.Inc()
}
