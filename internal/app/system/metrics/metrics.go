// Package metrics owns the Prometheus registry served on /metrics.
//
// All recording methods are safe on a nil *Metrics so services can run
// without instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/dalemusser/recipehub/internal/app/system/apierr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipehub"

// Metrics bundles the application's collectors.
type Metrics struct {
	registry *prometheus.Registry

	familyOps        *prometheus.CounterVec
	versionConflicts *prometheus.CounterVec
	inviteCollisions prometheus.Counter
	authEvents       *prometheus.CounterVec
}

// New creates a registry with Go/process collectors and the app counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		familyOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "family",
			Name:      "operations_total",
			Help:      "Family group operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		versionConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "family",
			Name:      "version_conflicts_total",
			Help:      "Optimistic-concurrency misses that forced a reload and retry.",
		}, []string{"op"}),
		inviteCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "family",
			Name:      "invite_code_collisions_total",
			Help:      "Group inserts rejected by the unique invite-code index.",
		}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Registrations and logins by outcome.",
		}, []string{"event", "outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.familyOps,
		m.versionConflicts,
		m.inviteCollisions,
		m.authEvents,
	)
	return m
}

// Register adds extra collectors (e.g. collection counts).
func (m *Metrics) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome labels err as "ok" or its apierr kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apierr.KindOf(err))
}

// FamilyOp counts one family operation.
func (m *Metrics) FamilyOp(op string, err error) {
	if m == nil {
		return
	}
	m.familyOps.WithLabelValues(op, Outcome(err)).Inc()
}

// VersionConflict counts one optimistic-concurrency retry.
func (m *Metrics) VersionConflict(op string) {
	if m == nil {
		return
	}
	m.versionConflicts.WithLabelValues(op).Inc()
}

// InviteCodeCollision counts one unique-index rejection on create.
func (m *Metrics) InviteCodeCollision() {
	if m == nil {
		return
	}
	m.inviteCollisions.Inc()
}

// AuthEvent counts a registration or login attempt.
func (m *Metrics) AuthEvent(event string, err error) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, Outcome(err)).Inc()
}
