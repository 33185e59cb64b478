// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the auth service, live handlers and jobs report to.
type Recorder interface {
	RecordAuthOperation(operation string, err error)
	RecordHTTPStatus(statusCode int)
	LiveSubscriptionOpened(kind string)
	LiveSubscriptionClosed(kind string)
	RecordProfileResync(synced, failed int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	authOps      *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	liveSubs     *prometheus.GaugeVec
	resyncedUser *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firekit_auth_operations_total",
			Help: "Auth operations by operation and result",
		}, []string{"operation", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firekit_http_status_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		liveSubs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "firekit_live_subscriptions",
			Help: "Open live store subscriptions by kind",
		}, []string{"kind"}),
		resyncedUser: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firekit_profile_resync_users_total",
			Help: "Users processed by the profile resync job by result",
		}, []string{"result"}),
	}

	reg.MustRegister(c.authOps, c.httpStatus, c.liveSubs, c.resyncedUser)
	return c
}

func (c *Collector) RecordAuthOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.authOps.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) LiveSubscriptionOpened(kind string) {
	c.liveSubs.WithLabelValues(kind).Inc()
}

func (c *Collector) LiveSubscriptionClosed(kind string) {
	c.liveSubs.WithLabelValues(kind).Dec()
}

func (c *Collector) RecordProfileResync(synced, failed int) {
	c.resyncedUser.WithLabelValues("synced").Add(float64(synced))
	c.resyncedUser.WithLabelValues("failed").Add(float64(failed))
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAuthOperation(string, error) {}
func (Nop) RecordHTTPStatus(int)              {}
func (Nop) LiveSubscriptionOpened(string)     {}
func (Nop) LiveSubscriptionClosed(string)     {}
func (Nop) RecordProfileResync(int, int)      {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
