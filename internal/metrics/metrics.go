// Package metrics exposes Prometheus instrumentation for the cooking timer.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery channels and results.
const (
	ChannelText  = "text"
	ChannelVoice = "voice"

	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultSkipped  = "skipped"
	ResultRejected = "rejected"
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ottofry_ticks_total",
		Help: "Total number of applied timer ticks",
	})

	StaleTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ottofry_stale_ticks_total",
		Help: "Ticks discarded because the session was not running or the tick loop was superseded",
	})

	ActionsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottofry_actions_fired_total",
		Help: "Scheduled mid-cook actions fired, by action type",
	}, []string{"type"})

	WarningsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottofry_warnings_fired_total",
		Help: "Time warnings fired, by threshold in seconds",
	}, []string{"threshold"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottofry_deliveries_total",
		Help: "Alert deliveries by channel and result",
	}, []string{"channel", "result"})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ottofry_commands_total",
		Help: "Engine commands by name and result",
	}, []string{"command", "result"})

	SessionsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ottofry_sessions_completed_total",
		Help: "Cooks that ran to completion",
	})

	SnapshotDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ottofry_snapshot_drops_total",
		Help: "Snapshots dropped because a subscriber was not keeping up",
	})

	SessionRemainingSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ottofry_session_remaining_seconds",
		Help: "Seconds remaining in the current cook",
	})

	CatalogFoods = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ottofry_catalog_foods",
		Help: "Number of foods in the loaded catalog",
	})
)

// IncCommand records the outcome of an engine command.
func IncCommand(command string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultRejected
	}
	CommandsTotal.WithLabelValues(command, result).Inc()
}

// IncActionFired records a fired scheduled action.
func IncActionFired(actionType string) {
	if actionType == "" {
		actionType = "unknown"
	}
	ActionsFiredTotal.WithLabelValues(actionType).Inc()
}

// IncWarningFired records a fired time warning.
func IncWarningFired(thresholdSeconds int) {
	WarningsFiredTotal.WithLabelValues(strconv.Itoa(thresholdSeconds)).Inc()
}

// IncDelivery records one delivery attempt on a channel.
func IncDelivery(channel, result string) {
	DeliveriesTotal.WithLabelValues(channel, result).Inc()
}

// SetRemaining updates the remaining-seconds gauge.
func SetRemaining(seconds int) {
	SessionRemainingSeconds.Set(float64(seconds))
}
