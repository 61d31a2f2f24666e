// Package metrics collects and exposes Prometheus metrics for the
// authentication flow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the service layer records against. Callers that
// do not need metrics use NewNoop.
type Recorder interface {
	RecordSignInSuccess()
	RecordSignInFailure(reason string)
	RecordRateLimited()
	RecordLockout()
	RecordSignInLatency(duration time.Duration)
	RecordAttemptsCleaned(count int64)
}

// Collector is the Prometheus-backed Recorder implementation.
type Collector struct {
	signInSuccess   prometheus.Counter
	signInFail      *prometheus.CounterVec
	rateLimited     prometheus.Counter
	lockouts        prometheus.Counter
	signInLatency   prometheus.Histogram
	attemptsCleaned prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on the given
// registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signInSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authkit_signin_success_total",
			Help: "Total number of successful sign-ins",
		}),
		signInFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authkit_signin_fail_total",
			Help: "Total number of failed sign-ins by reason",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authkit_signin_rate_limited_total",
			Help: "Total number of sign-in requests rejected by the rate limiter",
		}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authkit_account_lockouts_total",
			Help: "Total number of accounts that entered the locked state",
		}),
		signInLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authkit_signin_duration_seconds",
			Help:    "Sign-in request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		attemptsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authkit_login_attempts_cleaned_total",
			Help: "Total number of login attempt rows removed by retention cleanup",
		}),
	}

	reg.MustRegister(
		c.signInSuccess,
		c.signInFail,
		c.rateLimited,
		c.lockouts,
		c.signInLatency,
		c.attemptsCleaned,
	)

	return c
}

func (c *Collector) RecordSignInSuccess() {
	c.signInSuccess.Inc()
}

func (c *Collector) RecordSignInFailure(reason string) {
	c.signInFail.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

func (c *Collector) RecordLockout() {
	c.lockouts.Inc()
}

func (c *Collector) RecordSignInLatency(duration time.Duration) {
	c.signInLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordAttemptsCleaned(count int64) {
	c.attemptsCleaned.Add(float64(count))
}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards every observation.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) RecordSignInSuccess()              {}
func (Noop) RecordSignInFailure(string)        {}
func (Noop) RecordRateLimited()                {}
func (Noop) RecordLockout()                    {}
func (Noop) RecordSignInLatency(time.Duration) {}
func (Noop) RecordAttemptsCleaned(int64)       {}
