package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the decision pipeline and the
// coordination layer. Constructed once at process start and injected;
// there are no package-level registries.
type Metrics struct {
	TriagesTotal      *prometheus.CounterVec
	TriageDuration    *prometheus.HistogramVec
	RedFlagOverrides  prometheus.Counter
	LLMCallsTotal     *prometheus.CounterVec
	LLMDuration       prometheus.Histogram
	ToolCallsTotal    *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	AgentRunsTotal    *prometheus.CounterVec
	AgentDuration     *prometheus.HistogramVec
	AssessAlertsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medassist_triages_total",
			Help: "Total triage decisions by final urgency and action.",
		}, []string{"urgency", "action"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medassist_triage_duration_seconds",
			Help:    "Duration of triage decisions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~20s
		}, []string{"path"}),
		RedFlagOverrides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medassist_redflag_overrides_total",
			Help: "Total deterministic critical red-flag escalations.",
		}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medassist_llm_calls_total",
			Help: "Total reasoning backend calls by parse outcome.",
		}, []string{"result"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medassist_llm_call_duration_seconds",
			Help:    "Duration of individual reasoning calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medassist_tool_calls_total",
			Help: "Total tool executions by tool name and status.",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medassist_tool_duration_seconds",
			Help:    "Duration of tool executions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms .. ~6.4s
		}, []string{"tool"}),
		AgentRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medassist_agent_runs_total",
			Help: "Total agent executions by component name and outcome.",
		}, []string{"agent", "outcome"}),
		AgentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medassist_agent_duration_seconds",
			Help:    "Duration of agent executions by component name.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"agent"}),
		AssessAlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medassist_assess_alerts_total",
			Help: "Total cross-agent coordination alerts by level.",
		}, []string{"level"}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.RedFlagOverrides,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.ToolCallsTotal,
		m.ToolDuration,
		m.AgentRunsTotal,
		m.AgentDuration,
		m.AssessAlertsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that feeds the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(duration float64, parsed bool) {
			result := "parsed"
			if !parsed {
				result = "fallback"
			}
			m.LLMCallsTotal.WithLabelValues(result).Inc()
			m.LLMDuration.Observe(duration)
		},
		OnToolCall: func(name string, duration float64, isError bool) {
			status := "success"
			if isError {
				status = "error"
			}
			m.ToolCallsTotal.WithLabelValues(name, status).Inc()
			m.ToolDuration.WithLabelValues(name).Observe(duration)
		},
		OnComplete: func(e *CompleteEvent) {
			m.TriagesTotal.WithLabelValues(string(e.Urgency), string(e.Action)).Inc()
			path := "reasoned"
			if e.ShortCircuit {
				path = "short_circuit"
				m.RedFlagOverrides.Inc()
			}
			m.TriageDuration.WithLabelValues(path).Observe(e.Duration)
		},
	}
}

// ObserveAgentRun records one component execution for the coordination
// layer's duration/success tracking.
func (m *Metrics) ObserveAgentRun(agent string, duration float64, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.AgentRunsTotal.WithLabelValues(agent, outcome).Inc()
	m.AgentDuration.WithLabelValues(agent).Observe(duration)
}

// ObserveAlert records one derived coordination alert.
func (m *Metrics) ObserveAlert(level string) {
	m.AssessAlertsTotal.WithLabelValues(level).Inc()
}
