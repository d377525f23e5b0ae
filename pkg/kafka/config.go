package kafka

import (
	"time"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	// RequiredAcks is 0 for none, 1 for the leader, -1 for all replicas
	RequiredAcks int
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "fba-fee-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// Topics contains the Kafka topic names the fee service writes to
var Topics = struct {
	FeeEvents string
}{
	FeeEvents: "fba.fee.events",
}

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopicConfigs returns the topics to provision for the fee service
func DefaultTopicConfigs() []TopicConfig {
	return []TopicConfig{
		// 30 days, enough to replay a monthly fee reconciliation
		{Name: Topics.FeeEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 30 * 24 * 60 * 60 * 1000},
	}
}
