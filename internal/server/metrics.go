package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hexaflow/engine/pkg/api"
)

// Webhook observation outcomes
const (
	WebhookAccepted = "accepted"
	WebhookRejected = "rejected"
	WebhookNoMatch  = "no_match"
)

// Metrics tracks webhook traffic and run outcomes
type Metrics struct {
	webhooks *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// NewMetrics registers the engine's metrics with the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		webhooks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hexaflow",
			Name:      "webhook_requests_total",
			Help:      "Inbound webhook requests by outcome",
		}, []string{"outcome"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hexaflow",
			Name:      "runs_total",
			Help:      "Graph runs by final status",
		}, []string{"status"}),
	}
}

// ObserveWebhook counts one webhook request outcome
func (m *Metrics) ObserveWebhook(outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(outcome).Inc()
}

// ObserveRun counts one finished run by status
func (m *Metrics) ObserveRun(status api.RunStatus) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(status)).Inc()
}
