package config

// ObservabilityConfig contains metrics configuration.
type ObservabilityConfig struct {
	// StatsDEnabled toggles metric emission entirely.
	StatsDEnabled bool `env:"STATSD_ENABLED" envDefault:"false"`

	// StatsDAddress is the UDP host:port of a StatsD-compatible sink.
	StatsDAddress string `env:"STATSD_ADDRESS" envDefault:""`

	// StatsDPrefix is prepended to every metric name.
	StatsDPrefix string `env:"STATSD_PREFIX" envDefault:"userauth"`
}

// Sanitize applies guardrails to observability configuration values.
func (o *ObservabilityConfig) Sanitize() {
	if o.StatsDAddress == "" {
		o.StatsDEnabled = false
	}
}
