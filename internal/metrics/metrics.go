// Package metrics records prometheus counters for document loads and saves,
// hot reloads, and dynamic object churn.
//
// A nil *Metrics is a valid recorder that drops everything, so packages can
// hold one unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "livebag"

// Result labels.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultMissing = "missing"
)

// Metrics holds the collectors for a single application instance.
type Metrics struct {
	loads           *prometheus.CounterVec
	saves           *prometheus.CounterVec
	reloadRequests  prometheus.Counter
	reloadCoalesced prometheus.Counter
	reloadStaged    *prometheus.CounterVec
	reloadApplied   prometheus.Counter
	objectsCreated  *prometheus.CounterVec
	objectsDestroy  *prometheus.CounterVec
	objectsFailed   *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_loads_total",
			Help:      "Document loads by result (ok/error/missing)",
		}, []string{"result"}),
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_saves_total",
			Help:      "Document saves by result (ok/error)",
		}, []string{"result"}),
		reloadRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reload_requests_total",
			Help:      "Hot reload requests received",
		}),
		reloadCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reload_requests_coalesced_total",
			Help:      "Hot reload requests replaced by a newer request before being staged",
		}),
		reloadStaged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reload_staged_total",
			Help:      "Documents staged by the reload worker, by result",
		}, []string{"result"}),
		reloadApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reload_applied_total",
			Help:      "Staged snapshots applied on the main thread",
		}),
		objectsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dynamic_objects_created_total",
			Help:      "Dynamic objects created, by container",
		}, []string{"container"}),
		objectsDestroy: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dynamic_objects_destroyed_total",
			Help:      "Dynamic objects destroyed, by container",
		}, []string{"container"}),
		objectsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dynamic_objects_failed_total",
			Help:      "Dynamic objects whose construction failed, by container",
		}, []string{"container"}),
	}
}

func (m *Metrics) Load(result string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(result).Inc()
}

func (m *Metrics) Save(result string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(result).Inc()
}

// ReloadRequested counts a request; coalesced is true when it replaced a
// pending one.
func (m *Metrics) ReloadRequested(coalesced bool) {
	if m == nil {
		return
	}
	m.reloadRequests.Inc()
	if coalesced {
		m.reloadCoalesced.Inc()
	}
}

func (m *Metrics) ReloadStaged(result string) {
	if m == nil {
		return
	}
	m.reloadStaged.WithLabelValues(result).Inc()
}

func (m *Metrics) ReloadApplied() {
	if m == nil {
		return
	}
	m.reloadApplied.Inc()
}

// Reconciled adds the outcome of one container reconciliation.
func (m *Metrics) Reconciled(container string, created, destroyed, failed int) {
	if m == nil {
		return
	}
	if created > 0 {
		m.objectsCreated.WithLabelValues(container).Add(float64(created))
	}
	if destroyed > 0 {
		m.objectsDestroy.WithLabelValues(container).Add(float64(destroyed))
	}
	if failed > 0 {
		m.objectsFailed.WithLabelValues(container).Add(float64(failed))
	}
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
