package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wricardo/mcp-training/zippath/game/engine"
)

// Recorder exports move outcomes, completions and session counts to
// Prometheus.
type Recorder struct {
	registry    *prometheus.Registry
	moves       *prometheus.CounterVec
	completions *prometheus.CounterVec
	solveTime   *prometheus.HistogramVec
	sessions    prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		moves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zippath_moves_total",
				Help: "Move attempts by topology, result and rejection reason",
			},
			[]string{"topology", "result", "reason"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zippath_completions_total",
				Help: "Puzzles solved by topology",
			},
			[]string{"topology"},
		),
		solveTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zippath_solve_seconds",
				Help:    "Wall-clock time from load or reset to completion",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"topology"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zippath_active_sessions",
			Help: "Sessions currently held in memory",
		}),
	}
	r.registry.MustRegister(r.moves, r.completions, r.solveTime, r.sessions)
	return r
}

// ObserveOutcome counts one operation outcome
func (r *Recorder) ObserveOutcome(topology engine.Topology, result engine.Result, reason engine.Reason) {
	r.moves.WithLabelValues(string(topology), string(result), string(reason)).Inc()
}

// ObserveCompletion records a solved puzzle
func (r *Recorder) ObserveCompletion(topology engine.Topology, completion *engine.Completion) {
	if completion == nil {
		return
	}
	r.completions.WithLabelValues(string(topology)).Inc()
	r.solveTime.WithLabelValues(string(topology)).Observe(completion.Elapsed.Seconds())
}

// SetActiveSessions updates the session gauge
func (r *Recorder) SetActiveSessions(n int) {
	r.sessions.Set(float64(n))
}

// Registry exposes the underlying registry for additional collectors
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
