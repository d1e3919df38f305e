package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 汇总对话相关的 Prometheus 指标。
type Recorder struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	aiReplies   *prometheus.CounterVec
	turnLatency *prometheus.HistogramVec
	sessions    prometheus.Gauge
}

// New 创建独立注册表上的 Recorder，避免与全局默认注册表冲突。
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homebot",
			Name:      "resolutions_total",
			Help:      "Rule resolutions by bot and matched rule key.",
		}, []string{"bot", "rule"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homebot",
			Name:      "fallbacks_total",
			Help:      "Turns answered by the fallback rule.",
		}, []string{"bot"}),
		aiReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homebot",
			Name:      "ai_fallback_replies_total",
			Help:      "AI fallback attempts by outcome.",
		}, []string{"bot", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homebot",
			Name:      "turn_duration_seconds",
			Help:      "Time from user message to bot reply, typing delay included.",
			Buckets:   []float64{0.05, 0.25, 0.5, 1, 1.5, 2, 5, 10},
		}, []string{"bot"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "homebot",
			Name:      "sessions_active",
			Help:      "Open chat views.",
		}),
	}

	r.registry.MustRegister(r.resolutions, r.fallbacks, r.aiReplies, r.turnLatency, r.sessions)
	return r
}

// RecordResolution 记录一次规则命中。
func (r *Recorder) RecordResolution(botID, ruleKey string, fallback bool) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(botID, ruleKey).Inc()
	if fallback {
		r.fallbacks.WithLabelValues(botID).Inc()
	}
}

// RecordAIReply 记录一次大模型兜底的结果。
func (r *Recorder) RecordAIReply(botID string, success bool) {
	if r == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	r.aiReplies.WithLabelValues(botID, outcome).Inc()
}

// ObserveTurn 记录一轮对话耗时。
func (r *Recorder) ObserveTurn(botID string, d time.Duration) {
	if r == nil {
		return
	}
	r.turnLatency.WithLabelValues(botID).Observe(d.Seconds())
}

// SetActiveSessions 更新当前打开的会话数。
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

// Registry 暴露注册表，便于测试读取。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler 返回 /metrics 处理器。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
