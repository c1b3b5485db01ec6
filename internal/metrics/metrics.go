// Package metrics exposes funnel counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/wizard"
)

// Recorder counts analytics writes. It implements analytics.Listener.
type Recorder struct {
	registry     *prometheus.Registry
	events       *prometheus.CounterVec
	applications prometheus.Counter
	wizardSteps  *prometheus.CounterVec
}

var _ analytics.Listener = (*Recorder)(nil)

// New registers the funnel counters plus the Go and process collectors on a
// dedicated registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studybuddy",
			Name:      "events_total",
			Help:      "Tracked funnel events by type.",
		}, []string{"type"}),
		applications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studybuddy",
			Name:      "applications_total",
			Help:      "Submitted questionnaire applications.",
		}),
		wizardSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studybuddy",
			Name:      "wizard_steps_total",
			Help:      "Completed questionnaire steps by step id.",
		}, []string{"step"}),
	}
	r.registry.MustRegister(
		r.events,
		r.applications,
		r.wizardSteps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) EventRecorded(e analytics.Event) {
	r.events.WithLabelValues(e.Type).Inc()
	if e.Type != analytics.EventFormStepComplete {
		return
	}
	if step, ok := e.Data["step"].(string); ok && wizard.IsStep(step) {
		r.wizardSteps.WithLabelValues(step).Inc()
	}
}

func (r *Recorder) ApplicationSubmitted(analytics.Application) {
	r.applications.Inc()
}

// Handler serves the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
