package config

// OtelConfig selects where trace spans are exported.
type OtelConfig struct {
	// ExporterEndpoint is an OTLP/HTTP endpoint such as http://localhost:4318.
	// Empty installs the no-op provider.
	ExporterEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName      string  `env:"OTEL_SERVICE_NAME" envDefault:"flexo-mms-layer1"`
	SamplingRate     float64 `env:"OTEL_SAMPLING_RATE" envDefault:"1.0"`
}

// Enabled reports whether spans are exported.
func (c OtelConfig) Enabled() bool {
	return c.ExporterEndpoint != ""
}
