package services

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_submitted_total",
			Help: "Messages accepted by the pipeline, by kind",
		},
		[]string{"kind"},
	)

	unreadIncrements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_unread_increments_total",
			Help: "Absent members whose unread counter was incremented",
		},
	)

	pushDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_push_dispatched_total",
			Help: "Push dispatch outcomes",
		},
		[]string{"result"}, // sent, skipped, failed
	)
)

func init() {
	prometheus.MustRegister(messagesSubmitted)
	prometheus.MustRegister(unreadIncrements)
	prometheus.MustRegister(pushDispatched)
}
