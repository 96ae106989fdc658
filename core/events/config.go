package events

// Config holds configuration for the event emitter.
type Config struct {
	// Enabled toggles event emission entirely.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Brokers is a comma-separated list of Kafka broker addresses.
	Brokers string `mapstructure:"brokers" default:"localhost:9092"`
	// Topic is the topic entity sync events are published to.
	Topic string `mapstructure:"topic" default:"entity-sync"`
	// BatchTimeoutMs bounds how long the writer buffers messages.
	BatchTimeoutMs int `mapstructure:"batch_timeout_ms" default:"100"`
}
