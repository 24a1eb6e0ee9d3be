package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "kafka_events_published_total",
		Help:      "Events written to Kafka by topic and result",
	},
	[]string{"topic", "result"},
)
