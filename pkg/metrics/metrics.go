package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	KafkaMessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Number of messages fetched from Kafka",
		},
		[]string{"topic"},
	)
	KafkaMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_processed_total",
			Help: "Number of messages processed successfully",
		},
		[]string{"topic"},
	)
	KafkaMessagesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_failed_total",
			Help: "Number of messages abandoned after exhausting handling attempts",
		},
		[]string{"topic", "reason"}, // validation|handling
	)
	KafkaHandlingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_handling_attempts_total",
			Help: "Number of handling attempts by outcome",
		},
		[]string{"topic", "outcome"}, // success|error
	)
	KafkaCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_offset_commits_total",
			Help: "Number of offset commits by outcome",
		},
		[]string{"topic", "outcome"}, // ok|error
	)
	KafkaBrokerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_broker_errors_total",
			Help: "Number of broker errors seen by the poll loop",
		},
		[]string{"topic"},
	)
	KafkaMessagesProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Number of produced messages by delivery status",
		},
		[]string{"topic", "status"}, // delivered|failed
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_notifications_total",
			Help: "Alert notifications by status",
		},
		[]string{"status"}, // sent|failed|dropped
	)
)

var (
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations",
		},
		[]string{"op"}, // hit|miss|evicted|expired
	)
	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Number of items currently in cache",
		},
	)
)

var registerOnce sync.Once

// MustRegister — регистрирует все метрики в default registry; повторный вызов ничего не делает.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			KafkaMessagesConsumed, KafkaMessagesProcessed, KafkaMessagesFailed,
			KafkaHandlingAttempts, KafkaCommits, KafkaBrokerErrors,
			KafkaMessagesProduced, Notifications,
			CacheOps, CacheSize,
		)
	})
}
