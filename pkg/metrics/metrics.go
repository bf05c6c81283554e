package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Business metrics
	leadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_leads_created_total",
			Help: "Leads created, by source",
		},
		[]string{"source"},
	)

	stageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_stage_transitions_total",
			Help: "Lead stage changes",
		},
		[]string{"to", "kind"}, // kind: normal, forced
	)

	bridgeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_bridge_calls_total",
			Help: "Integration bridge calls, by event and outcome",
		},
		[]string{"event", "status"},
	)

	duplicateMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_bridge_duplicate_messages_total",
			Help: "WhatsApp messages rejected because the message id was already stored",
		},
	)

	leadsByStage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crm_leads_by_stage",
			Help: "Current number of leads in each pipeline stage",
		},
		[]string{"stage"},
	)

	inactiveHotLeads = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crm_inactive_hot_leads",
			Help: "Hot leads without contact for more than 3 days, by urgency band",
		},
		[]string{"band"},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

func RecordLeadCreated(source string) {
	leadsCreatedTotal.WithLabelValues(source).Inc()
}

func RecordStageTransition(to string, forced bool) {
	kind := "normal"
	if forced {
		kind = "forced"
	}
	stageTransitionsTotal.WithLabelValues(to, kind).Inc()
}

func RecordBridgeCall(event, status string) {
	bridgeCallsTotal.WithLabelValues(event, status).Inc()
}

func RecordDuplicateMessage() {
	duplicateMessagesTotal.Inc()
}

func SetLeadsByStage(counts map[string]int64) {
	leadsByStage.Reset()
	for stage, n := range counts {
		leadsByStage.WithLabelValues(stage).Set(float64(n))
	}
}

func SetInactiveHotLeads(byBand map[string]int) {
	inactiveHotLeads.Reset()
	for band, n := range byBand {
		inactiveHotLeads.WithLabelValues(band).Set(float64(n))
	}
}
