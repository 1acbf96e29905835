package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics collects the counters of one run. Batch jobs are not scraped, so
// the registry is pushed to a Pushgateway when the run ends.
type Metrics struct {
	Registry *prometheus.Registry

	Rows     *prometheus.CounterVec
	Batches  *prometheus.CounterVec
	Writes   *prometheus.CounterVec
	Repairs  *prometheus.CounterVec
	Duration *prometheus.GaugeVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdi_prep_rows_total",
				Help: "Input rows by pipeline and outcome.",
			},
			[]string{"pipeline", "outcome"},
		),
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdi_prep_batches_total",
				Help: "Input batches processed.",
			},
			[]string{"pipeline"},
		),
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdi_prep_output_writes_total",
				Help: "Write operations against output tables.",
			},
			[]string{"pipeline"},
		),
		Repairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hdi_prep_inchikey_repairs_total",
				Help: "InChIKey cells touched by the repair pass.",
			},
			[]string{"result"},
		),
		Duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hdi_prep_pipeline_duration_seconds",
				Help: "Wall time of the last pipeline run.",
			},
			[]string{"pipeline"},
		),
	}
	m.Registry.MustRegister(m.Rows, m.Batches, m.Writes, m.Repairs, m.Duration)
	return m
}

// Push sends the registry to a Pushgateway under job.
func (m *Metrics) Push(url, job string) error {
	return push.New(url, job).Gatherer(m.Registry).Push()
}
