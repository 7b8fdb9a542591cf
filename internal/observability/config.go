package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/shipledger/internal/config"
	"github.com/spf13/viper"
)

// Config holds logging, SQL logging and OpenTelemetry settings. Values come
// from the environment and fall back to the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	// SQLLogLevel is silent, error, warn or info. Blank means warn, or info
	// in debug environments.
	SQLLogLevel        string
	SlowQueryThreshold time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_NAME", firstNonEmpty(cfg.AppName, "shipledger"))
	v.SetDefault("DEPLOYMENT_ENV", cfg.Environment)
	v.SetDefault("SERVICE_VERSION", cfg.AppVersion)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_SLOW_QUERY_MS", 200)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)

	protocol := v.GetString("OTEL_EXPORTER_OTLP_PROTOCOL")
	if traces := strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		protocol = traces
	}

	return Config{
		ServiceName:          envString(v, "SERVICE_NAME"),
		Environment:          envString(v, "DEPLOYMENT_ENV"),
		Version:              envString(v, "SERVICE_VERSION"),
		LogLevel:             strings.ToLower(envString(v, "LOG_LEVEL")),
		LogFormat:            strings.ToLower(envString(v, "LOG_FORMAT")),
		SQLLogLevel:          strings.ToLower(envString(v, "DB_LOG_LEVEL")),
		SlowQueryThreshold:   time.Duration(v.GetInt("DB_SLOW_QUERY_MS")) * time.Millisecond,
		OtelEnabled:          v.GetBool("OTEL_ENABLED"),
		OtelExporterEndpoint: envString(v, "OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterProtocol: strings.ToLower(strings.TrimSpace(protocol)),
		OtelSamplingRatio:    v.GetFloat64("OTEL_SAMPLING_RATIO"),
	}
}

// Debug turns on verbose request logs and stack traces.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// envString reads key trimmed. Blank variables count as unset, so the default applies.
func envString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
