// Package metrics exposes run and solve metrics to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives the outcome of every scheduling run.
type Recorder interface {
	RunFinished(status string, staff int)
	SolveObserved(elapsed time.Duration, objective float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RunFinished(string, int)              {}
func (Nop) SolveObserved(time.Duration, float64) {}

var (
	_ Recorder = Nop{}
	_ Recorder = (*Prometheus)(nil)
)

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs      *prometheus.CounterVec
	solve     prometheus.Histogram
	objective prometheus.Gauge
	staff     prometheus.Gauge
}

// NewPrometheus registers lazily on first use. A nil reg means the default
// registerer; an empty namespace means "ohsched".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "ohsched"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "runs_total",
			Help:      "Scheduling runs by outcome (solved, infeasible, not_converged, error).",
		}, []string{"status"})
		p.solve = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "solve_seconds",
			Help:      "Wall-clock time spent in the optimizer.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~100s
		})
		p.objective = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "objective_value",
			Help:      "Objective value of the last solved schedule.",
		})
		p.staff = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "staff_count",
			Help:      "Staff scheduled by the last run.",
		})
		p.reg.MustRegister(p.runs, p.solve, p.objective, p.staff)
	})
}

func (p *Prometheus) RunFinished(status string, staff int) {
	p.ensureRegistered()
	p.runs.WithLabelValues(status).Inc()
	p.staff.Set(float64(staff))
}

func (p *Prometheus) SolveObserved(elapsed time.Duration, objective float64) {
	p.ensureRegistered()
	p.solve.Observe(elapsed.Seconds())
	p.objective.Set(objective)
}
