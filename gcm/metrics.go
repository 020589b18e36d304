package gcm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	relockRounds    prometheus.Counter
	disableTimeouts prometheus.Counter
	invalidRequests *prometheus.CounterVec
	sourceRate      *prometheus.GaugeVec
}

// newMetrics creates the controller's collectors. With a nil registerer they
// are created but not registered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		relockRounds: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gcm_relock_rounds_total",
				Help: "Number of disable/reconfigure/enable rounds run by the PLL errata workaround",
			},
		),
		disableTimeouts: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gcm_disable_timeouts_total",
				Help: "Number of times clock sources failed to become invalid after being disabled",
			},
		),
		invalidRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gcm_invalid_requests_total",
				Help: "Number of clock requests rejected as invalid, by operation",
			},
			[]string{"op"},
		),
		sourceRate: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gcm_source_rate_hertz",
				Help: "Last resolved rate of each clock source",
			},
			[]string{"source"},
		),
	}
}
