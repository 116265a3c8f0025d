package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardbot_updates_total",
			Help: "Total number of updates processed, by update type",
		},
		[]string{"type"},
	)

	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardbot_moderation_actions_total",
			Help: "Total number of moderation actions taken, by action",
		},
		[]string{"action"},
	)

	captchaOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardbot_captcha_outcomes_total",
			Help: "Total number of finished captcha challenges, by outcome",
		},
		[]string{"outcome"},
	)

	updateProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guardbot_update_processing_duration_seconds",
			Help:    "Time spent processing a single update",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(updatesTotal)
	prometheus.MustRegister(moderationActionsTotal)
	prometheus.MustRegister(captchaOutcomesTotal)
	prometheus.MustRegister(updateProcessingDuration)
}

func RecordUpdate(updateType string) {
	updatesTotal.WithLabelValues(updateType).Inc()
}

func RecordModerationAction(action string) {
	moderationActionsTotal.WithLabelValues(action).Inc()
}

func RecordCaptchaOutcome(outcome string) {
	captchaOutcomesTotal.WithLabelValues(outcome).Inc()
}

// StartUpdateProcessing returns a function that records the elapsed time.
func StartUpdateProcessing() func() {
	timer := prometheus.NewTimer(updateProcessingDuration)
	return func() {
		timer.ObserveDuration()
	}
}
