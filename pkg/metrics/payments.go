package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records webhook and checkout outcomes.
type PaymentMetrics struct {
	webhookProcessed *prometheus.CounterVec
	webhookDuplicate *prometheus.CounterVec
	webhookFailed    *prometheus.CounterVec
	checkoutOutcome  *prometheus.CounterVec
	chargeDuration   *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Processor webhook events applied.",
	}, []string{"type"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Processor webhook events skipped as already seen.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Processor webhook events that failed to apply.",
	}, []string{"type"})
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcome",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	chargeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "processor_charge_duration_seconds",
		Help:    "Duration of processor charge calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(processed, duplicate, failed, checkout, chargeDuration)
	return &PaymentMetrics{
		webhookProcessed: processed,
		webhookDuplicate: duplicate,
		webhookFailed:    failed,
		checkoutOutcome:  checkout,
		chargeDuration:   chargeDuration,
	}
}

// IncWebhookProcessed increments the processed counter for the event type.
func (p *PaymentMetrics) IncWebhookProcessed(eventType string) {
	if p == nil || p.webhookProcessed == nil {
		return
	}
	p.webhookProcessed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncWebhookDuplicate increments the duplicate counter for the event type.
func (p *PaymentMetrics) IncWebhookDuplicate(eventType string) {
	if p == nil || p.webhookDuplicate == nil {
		return
	}
	p.webhookDuplicate.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncWebhookFailed increments the failure counter for the event type.
func (p *PaymentMetrics) IncWebhookFailed(eventType string) {
	if p == nil || p.webhookFailed == nil {
		return
	}
	p.webhookFailed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncCheckoutOutcome increments the checkout counter for the outcome label.
func (p *PaymentMetrics) IncCheckoutOutcome(outcome string) {
	if p == nil || p.checkoutOutcome == nil {
		return
	}
	p.checkoutOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveChargeDuration records how long a processor call took.
func (p *PaymentMetrics) ObserveChargeDuration(operation string, duration time.Duration) {
	if p == nil || p.chargeDuration == nil {
		return
	}
	p.chargeDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
