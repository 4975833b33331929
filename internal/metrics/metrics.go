// Package metrics holds the Prometheus collectors of the survey API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeRace     = "race_resolved"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Submissions          *prometheus.CounterVec
	CouponCollisions     prometheus.Counter
	NotificationsSent    prometheus.Counter
	NotificationFailures prometheus.Counter
	RateLimited          prometheus.Counter
	FriendshipChecks     *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "submissions_total",
			Help:      "Survey submissions by outcome.",
		}, []string{"outcome"}),
		CouponCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "coupon_collisions_total",
			Help:      "Inserts rejected because the generated coupon code already existed.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "notifications_sent_total",
			Help:      "Coupon push messages delivered.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "notification_failures_total",
			Help:      "Coupon push messages that could not be delivered.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "rate_limited_total",
			Help:      "Submissions refused by the per-IP rate limit.",
		}),
		FriendshipChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "friendship_checks_total",
			Help:      "LINE friendship lookups by source.",
		}, []string{"source"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "survey",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Submissions,
		m.CouponCollisions,
		m.NotificationsSent,
		m.NotificationFailures,
		m.RateLimited,
		m.FriendshipChecks,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
