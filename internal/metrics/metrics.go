// Package metrics exposes dropbot's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed poll cycles by outcome:
	// "ok", "feed_error", "store_error".
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropbot_cycles_total",
		Help: "Completed drop check cycles by outcome",
	}, []string{"outcome"})

	// CyclesSkipped counts ticks skipped because a cycle was still running.
	CyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropbot_cycles_skipped_total",
		Help: "Poll ticks skipped due to an in-flight cycle",
	})

	// NotificationsSent counts successfully delivered drop notifications.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropbot_notifications_sent_total",
		Help: "Drop notifications delivered to the chat sink",
	})

	// NotificationsFailed counts delivery failures. These rewards stay in
	// the ledger and are never retried.
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropbot_notifications_failed_total",
		Help: "Drop notifications that failed to send",
	})

	// TrackedGames is the distinct tracked-game count observed by the
	// latest cycle.
	TrackedGames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dropbot_tracked_games",
		Help: "Distinct game names currently tracked",
	})
)
