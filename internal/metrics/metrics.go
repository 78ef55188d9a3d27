package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts appended messages by sender.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sponsorlink",
		Subsystem: "chat",
		Name:      "messages_total",
		Help:      "Messages appended to widget conversations.",
	}, []string{"sender"})

	// ClassificationsTotal counts visitors labelled by the classifier.
	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sponsorlink",
		Subsystem: "chat",
		Name:      "classifications_total",
		Help:      "Conversations whose user type was assigned.",
	}, []string{"user_type"})

	// RepliesTotal counts scheduled bot replies by user type and matched intent.
	RepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sponsorlink",
		Subsystem: "chat",
		Name:      "replies_total",
		Help:      "Bot replies scheduled by the script.",
	}, []string{"user_type", "intent"})

	// ActiveSessions tracks open widget sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sponsorlink",
		Subsystem: "chat",
		Name:      "active_sessions",
		Help:      "Widget sessions currently held in memory.",
	})

	// RateLimitedTotal counts rejected message submissions.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sponsorlink",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-session rate limiter.",
	})
)
