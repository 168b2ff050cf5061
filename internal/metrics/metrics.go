// SPDX-License-Identifier: MPL-2.0

// Package metrics exposes host and connector activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/invowk/langhost/internal/core/lifecycle"
	"github.com/invowk/langhost/internal/host"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "langhost"

// Session request results reported to SessionResult.
const (
	SessionAccepted    SessionOutcome = "accepted"
	SessionRejected    SessionOutcome = "rejected"
	SessionInvalid     SessionOutcome = "invalid"
	SessionUnavailable SessionOutcome = "unavailable"
	SessionThrottled   SessionOutcome = "throttled"
)

// SessionOutcome labels langhost_sessions_total.
type SessionOutcome string

// Registry owns the langhost metrics. It implements host.Observer.
type Registry struct {
	reg *prometheus.Registry

	hostState     *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
	startFailures *prometheus.CounterVec
	sessions      *prometheus.CounterVec
	busyWaits     *prometheus.CounterVec
}

var _ host.Observer = (*Registry)(nil)

// NewRegistry creates a Registry with the Go and process collectors
// registered alongside the langhost metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		hostState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "state",
			Help:      "1 for the current runtime lifecycle state, 0 otherwise.",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "transitions_total",
			Help:      "Runtime lifecycle transitions.",
		}, []string{"from", "to"}),
		startFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "start_failures_total",
			Help:      "Failed runtime starts by error kind.",
		}, []string{"kind"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Session requests by result.",
		}, []string{"result"}),
		busyWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "busy_waits_total",
			Help:      "Busy checks by outcome.",
		}, []string{"outcome"}),
	}

	r.reg.MustRegister(
		r.hostState,
		r.transitions,
		r.startFailures,
		r.sessions,
		r.busyWaits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.setState(lifecycle.StateStopped)
	return r
}

// Gatherer returns the underlying registry for scraping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// HostTransition records a lifecycle transition.
func (r *Registry) HostTransition(from, to lifecycle.State) {
	r.transitions.WithLabelValues(from.String(), to.String()).Inc()
	r.setState(to)
}

// StartFailed records a failed start.
func (r *Registry) StartFailed(kind host.ErrorKind) {
	if kind == host.KindNone {
		kind = host.KindUnknown
	}
	r.startFailures.WithLabelValues(string(kind)).Inc()
}

// BusyWait records the outcome of a busy check.
func (r *Registry) BusyWait(outcome host.BusyOutcome) {
	r.busyWaits.WithLabelValues(string(outcome)).Inc()
}

// SessionResult records the result of a session request.
func (r *Registry) SessionResult(outcome SessionOutcome) {
	r.sessions.WithLabelValues(string(outcome)).Inc()
}

func (r *Registry) setState(current lifecycle.State) {
	for _, s := range []lifecycle.State{
		lifecycle.StateStopped,
		lifecycle.StateStarting,
		lifecycle.StateRunning,
		lifecycle.StateStopping,
	} {
		v := 0.0
		if s == current {
			v = 1
		}
		r.hostState.WithLabelValues(s.String()).Set(v)
	}
}
