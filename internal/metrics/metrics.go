package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proposal_vetting"

// Recorder owns the service's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	submissions     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	aiFallbacks     *prometheus.CounterVec
	renderFallbacks prometheus.Counter
	urlFetches      *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Proposal submissions by mode and outcome.",
		}, []string{"mode", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		aiFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_fallbacks_total",
			Help:      "AI insight responses replaced or flagged, by reason.",
		}, []string{"reason"}),
		renderFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_fallbacks_total",
			Help:      "Reports delivered as plain text because PDF rendering failed.",
		}),
		urlFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "url_fetches_total",
			Help:      "Outbound URL fetches by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.submissions,
		r.stageDuration,
		r.aiFallbacks,
		r.renderFallbacks,
		r.urlFetches,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Submission counts one run. The mode label is lower-cased so "Light" and
// "light" land in the same series.
func (r *Recorder) Submission(mode, outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(strings.ToLower(mode), outcome).Inc()
}

func (r *Recorder) StageDuration(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) AIFallback(reason string) {
	if r == nil {
		return
	}
	r.aiFallbacks.WithLabelValues(reason).Inc()
}

func (r *Recorder) RenderFallback() {
	if r == nil {
		return
	}
	r.renderFallbacks.Inc()
}

func (r *Recorder) URLFetch(result string) {
	if r == nil {
		return
	}
	r.urlFetches.WithLabelValues(result).Inc()
}
