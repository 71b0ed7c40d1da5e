// Package metrics exposes lifecycle counters for uploads, downloads and tier
// transitions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics defines the counters the gateway and the scheduler update.
type Metrics interface {
	IncUploads(result string)
	IncDownloads(result string)
	IncPromotions(result string)
	IncDemotions(result string)
	ObserveCycle(scanned, demoted int)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncUploads(string)     {}
func (Noop) IncDownloads(string)   {}
func (Noop) IncPromotions(string)  {}
func (Noop) IncDemotions(string)   {}
func (Noop) ObserveCycle(int, int) {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	uploads    *prometheus.CounterVec
	downloads  *prometheus.CounterVec
	promotions *prometheus.CounterVec
	demotions  *prometheus.CounterVec
	cycles     prometheus.Counter
	scanned    prometheus.Gauge
	lastDemote prometheus.Gauge
	gatherer   prometheus.Gatherer
}

// NewProm registers the collectors, plus Go runtime and process collectors,
// on a fresh registry.
func NewProm(namespace string) *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads by result",
		}, []string{"result"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Downloads by result",
		}, []string{"result"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_total",
			Help:      "Cold to hot promotions by result",
		}, []string{"result"}),
		demotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demotions_total",
			Help:      "Hot to cold demotions by result",
		}, []string{"result"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiering_cycles_total",
			Help:      "Completed tiering scheduler cycles",
		}),
		scanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tiering_last_cycle_scanned",
			Help:      "Hot files inspected by the last tiering cycle",
		}),
		lastDemote: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tiering_last_cycle_demoted",
			Help:      "Files demoted by the last tiering cycle",
		}),
		gatherer: reg,
	}
	reg.MustRegister(p.uploads, p.downloads, p.promotions, p.demotions, p.cycles, p.scanned, p.lastDemote,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prom) IncUploads(result string) {
	p.uploads.WithLabelValues(result).Inc()
}

func (p *Prom) IncDownloads(result string) {
	p.downloads.WithLabelValues(result).Inc()
}

func (p *Prom) IncPromotions(result string) {
	p.promotions.WithLabelValues(result).Inc()
}

func (p *Prom) IncDemotions(result string) {
	p.demotions.WithLabelValues(result).Inc()
}

func (p *Prom) ObserveCycle(scanned, demoted int) {
	p.cycles.Inc()
	p.scanned.Set(float64(scanned))
	p.lastDemote.Set(float64(demoted))
}

// Handler returns an HTTP handler for /metrics.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
