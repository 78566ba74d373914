package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voicemirror/internal/domain"
)

type PrometheusMetrics struct {
	toolCallDuration *prometheus.HistogramVec
	groupLoads       *prometheus.CounterVec
	groupUnloads     *prometheus.CounterVec
	loadedGroups     prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voicemirror_tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "group", "status"},
		),
		groupLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicemirror_group_loads_total",
				Help: "Total number of tool group loads",
			},
			[]string{"group", "cause"},
		),
		groupUnloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicemirror_group_unloads_total",
				Help: "Total number of tool group unloads",
			},
			[]string{"group", "cause"},
		),
		loadedGroups: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "voicemirror_loaded_groups",
				Help: "Current number of loaded tool groups",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveToolCall(tool, group string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.toolCallDuration.WithLabelValues(tool, group, status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveGroupLoad(group, cause string) {
	p.groupLoads.WithLabelValues(group, cause).Inc()
}

func (p *PrometheusMetrics) ObserveGroupUnload(group, cause string) {
	p.groupUnloads.WithLabelValues(group, cause).Inc()
}

func (p *PrometheusMetrics) SetLoadedGroups(count int) {
	p.loadedGroups.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
