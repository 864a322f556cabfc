package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	templateSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsched",
			Name:      "template_saves_total",
			Help:      "Count of weekly template saves by result.",
		},
		[]string{"result"},
	)

	overrideSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsched",
			Name:      "override_saves_total",
			Help:      "Count of day override saves by result.",
		},
		[]string{"result"},
	)

	validationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsched",
			Name:      "validation_rejections_total",
			Help:      "Count of edits rejected by local validation.",
		},
		[]string{"code"},
	)

	gatewayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsched",
			Name:      "gateway_errors_total",
			Help:      "Count of failed calls to the schedule API.",
		},
		[]string{"op"},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsched",
			Name:      "api_requests_total",
			Help:      "Count of schedule API requests served.",
		},
		[]string{"route", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(templateSaves, overrideSaves, validationRejections, gatewayErrors, apiRequests)
	})
}

func IncTemplateSave(result string) {
	templateSaves.WithLabelValues(result).Inc()
}

func IncOverrideSave(result string) {
	overrideSaves.WithLabelValues(result).Inc()
}

func IncValidationRejection(code string) {
	validationRejections.WithLabelValues(code).Inc()
}

func IncGatewayError(op string) {
	gatewayErrors.WithLabelValues(op).Inc()
}

func IncAPIRequest(route, status string) {
	apiRequests.WithLabelValues(route, status).Inc()
}
