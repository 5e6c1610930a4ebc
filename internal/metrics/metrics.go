package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels scoring calls that returned a usable body.
	OutcomeSuccess = "success"
	// OutcomeRejected labels non-2xx answers from the scoring service.
	OutcomeRejected = "rejected"
	// OutcomeNetwork labels transport failures and timeouts.
	OutcomeNetwork = "network"
	// OutcomeDecoding labels 2xx answers with a malformed body.
	OutcomeDecoding = "decoding"
	// OutcomeEncoding labels records that could not be encoded.
	OutcomeEncoding = "encoding"
)

var (
	scoringRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attrition_console",
			Name:      "scoring_requests_total",
			Help:      "Total number of scoring service calls, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	scoringRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "attrition_console",
			Name:      "scoring_request_seconds",
			Help:      "Scoring service call latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	riskTiersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attrition_console",
			Name:      "risk_tiers_presented_total",
			Help:      "Predictions presented, partitioned by risk tier and whether the tier came from the service or the local fallback.",
		},
		[]string{"tier", "source"},
	)

	staleResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attrition_console",
			Name:      "stale_responses_discarded_total",
			Help:      "Responses dropped because a newer request was issued first.",
		},
		[]string{"operation"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "attrition_console",
			Name:      "active_sessions",
			Help:      "Console sessions currently held by the gateway.",
		},
	)
)

var knownOutcomes = map[string]struct{}{
	OutcomeSuccess:  {},
	OutcomeRejected: {},
	OutcomeNetwork:  {},
	OutcomeDecoding: {},
	OutcomeEncoding: {},
}

// Register attaches attrition-console collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		scoringRequestsTotal,
		scoringRequestSeconds,
		riskTiersTotal,
		staleResponsesTotal,
		activeSessions,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveScoringCall records a scoring call duration and outcome label.
func ObserveScoringCall(operation string, duration time.Duration, outcome string) {
	if _, ok := knownOutcomes[outcome]; !ok {
		outcome = OutcomeNetwork
	}
	scoringRequestsTotal.WithLabelValues(operation, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	scoringRequestSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRiskTier counts a presented prediction.
func ObserveRiskTier(tier, source string) {
	riskTiersTotal.WithLabelValues(tier, source).Inc()
}

// ObserveStaleResponse counts a discarded out-of-order response.
func ObserveStaleResponse(operation string) {
	staleResponsesTotal.WithLabelValues(operation).Inc()
}

// SetActiveSessions publishes the current session count.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
