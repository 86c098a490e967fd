package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_chat_messages_appended_total",
			Help: "Messages persisted to the message store",
		},
	)

	BroadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_broadcast_deliveries_total",
			Help: "Per-connection broadcast deliveries",
		},
		[]string{"result"}, // "ok" or "failed"
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_chat_active_connections",
			Help: "Websocket connections registered to a room",
		},
	)

	ConversationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_chat_conversations_skipped_total",
			Help: "Rooms left out of a conversation list",
		},
		[]string{"reason"},
	)
)
