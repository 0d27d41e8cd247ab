// Package metrics exposes the pipeline's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TurnsTotal       *prometheus.CounterVec
	FallbackReplies  prometheus.Counter
	ProviderCalls    *prometheus.CounterVec
	TurnDuration     prometheus.Histogram
	ProviderDuration *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
	SessionsComplete prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "siren_turns_total",
			Help: "Turns processed, by outcome status",
		}, []string{"status"}),
		FallbackReplies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "siren_fallback_replies_total",
			Help: "Replies served from the deterministic fallback pool",
		}),
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "siren_provider_calls_total",
			Help: "Generation back-end calls, by provider and status",
		}, []string{"provider", "status"}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "siren_turn_duration_seconds",
			Help:    "End-to-end turn processing time",
			Buckets: prometheus.DefBuckets,
		}),
		ProviderDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "siren_provider_call_duration_seconds",
			Help:    "Generation back-end call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "siren_active_sessions",
			Help: "Sessions currently held in memory",
		}),
		SessionsComplete: promauto.NewCounter(prometheus.CounterOpts{
			Name: "siren_sessions_completed_total",
			Help: "Sessions that reached the turn ceiling",
		}),
	}
}
