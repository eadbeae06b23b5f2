package config_test

import (
	"slices"
	"testing"
	"time"

	cfg "github.com/Gunvolt24/dms_events/config"
)

// TestLoadWithPrefix_Defaults — проверка наличия значений по умолчанию.
func TestLoadWithPrefix_Defaults(t *testing.T) {
	t.Parallel()

	c, err := cfg.LoadWithPrefix("DMS_TEST_DEFAULTS")
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	if c.App.Env != "local" {
		t.Fatalf("App.Env: want local, got %q", c.App.Env)
	}

	// HTTP
	if !c.HTTP.Enabled || c.HTTP.Addr != ":8080" || c.HTTP.GinMode != "debug" {
		t.Fatalf("HTTP defaults wrong: %+v", c.HTTP)
	}
	if c.HTTP.ReadTimeout != 10*time.Second || c.HTTP.WriteTimeout != 10*time.Second {
		t.Fatalf("HTTP timeouts wrong: %+v", c.HTTP)
	}
	if c.HTTP.ReadHeaderTimeout != 5*time.Second || c.HTTP.IdleTimeout != 60*time.Second {
		t.Fatalf("HTTP header/idle timeouts wrong: %+v", c.HTTP)
	}
	if c.HTTP.HandlerTimeout != 3*time.Second {
		t.Fatalf("HTTP.HandlerTimeout: want 3s, got %v", c.HTTP.HandlerTimeout)
	}

	// Metrics
	if c.Metrics.Addr != ":2112" {
		t.Fatalf("Metrics.Addr: want :2112, got %q", c.Metrics.Addr)
	}

	// Tracing
	if c.Tracing.Enabled {
		t.Fatalf("Tracing.Enabled: want false, got true")
	}
	if c.Tracing.ServiceName != "dms-events" || c.Tracing.Endpoint != "jaeger:4318" || c.Tracing.SampleRatio != 1 {
		t.Fatalf("Tracing defaults wrong: %+v", c.Tracing)
	}

	// Postgres
	if c.Postgres.DSN == "" || c.Postgres.MaxConns != 10 || !c.Postgres.AutoMigrate {
		t.Fatalf("Postgres defaults wrong: %+v", c.Postgres)
	}

	// Kafka
	if !slices.Equal(c.Kafka.Brokers, []string{"kafka:9092"}) {
		t.Fatalf("Kafka.Brokers: want [kafka:9092], got %v", c.Kafka.Brokers)
	}
	if !slices.Equal(c.Kafka.Topics, []string{"user-profile"}) || c.Kafka.GroupID != "dms-events" || c.Kafka.StartOffset != "last" {
		t.Fatalf("Kafka defaults wrong: %+v", c.Kafka)
	}
	if c.Kafka.MaxAttempts != 3 || c.Kafka.PollTimeout != time.Second || c.Kafka.SkipRetryOnValidation {
		t.Fatalf("Kafka retry defaults wrong: %+v", c.Kafka)
	}
	if c.Kafka.ProcessTimeout != 5*time.Second || c.Kafka.RetryInitial != 1*time.Second || c.Kafka.RetryMax != 30*time.Second {
		t.Fatalf("Kafka timeouts wrong: %+v", c.Kafka)
	}
	if c.Kafka.SASLMechanism != "" || c.Kafka.TLS {
		t.Fatalf("Kafka security should be plaintext by default: %+v", c.Kafka)
	}

	// Producer
	if !c.Producer.Enabled || c.Producer.Acks != "all" || c.Producer.Compression != "none" ||
		c.Producer.WriteTimeout != 10*time.Second || c.Producer.BatchTimeout != 5*time.Millisecond {
		t.Fatalf("Producer defaults wrong: %+v", c.Producer)
	}

	// Notify
	if c.Notify.Enabled || c.Notify.DiscordWebhook != "" || c.Notify.BotName != "dms-events" ||
		c.Notify.Timeout != 5*time.Second || c.Notify.QueueSize != 64 {
		t.Fatalf("Notify defaults wrong: %+v", c.Notify)
	}

	// Cache
	if c.Cache.Capacity != 1000 || c.Cache.TTL != 10*time.Minute || c.Cache.WarmUp != 100 {
		t.Fatalf("Cache defaults wrong: %+v", c.Cache)
	}

	// Logger
	if c.Logger.IsProd {
		t.Fatalf("Logger.IsProd: want false, got true")
	}
}

// Меняем окружение.
func TestLoadWithPrefix_Overrides(t *testing.T) {
	const p = "DMS_TEST_OVR"

	t.Setenv(p+"_APP_ENV", "staging")

	// HTTP
	t.Setenv(p+"_HTTP_ENABLED", "false")
	t.Setenv(p+"_HTTP_ADDR", ":9999")
	t.Setenv(p+"_HTTP_GIN_MODE", "release")
	t.Setenv(p+"_HTTP_READ_TIMEOUT", "2s")
	t.Setenv(p+"_HTTP_HANDLER_TIMEOUT", "4500ms")

	// Tracing
	t.Setenv(p+"_TRACING_OTEL_ENABLED", "true")
	t.Setenv(p+"_TRACING_OTEL_SERVICE_NAME", "svc")
	t.Setenv(p+"_TRACING_OTEL_SAMPLE_RATIO", "0.25")

	// Postgres
	t.Setenv(p+"_POSTGRES_DSN", "postgres://u:p@h:5432/db?sslmode=disable")
	t.Setenv(p+"_POSTGRES_MAX_CONNS", "42")
	t.Setenv(p+"_POSTGRES_AUTO_MIGRATE", "false")

	// Kafka
	t.Setenv(p+"_KAFKA_BROKERS", "k1:9092,k2:9093")
	t.Setenv(p+"_KAFKA_TOPICS", "user-profile,user-audit")
	t.Setenv(p+"_KAFKA_GROUP_ID", "g-test")
	t.Setenv(p+"_KAFKA_START_OFFSET", "first")
	t.Setenv(p+"_KAFKA_MAX_ATTEMPTS", "5")
	t.Setenv(p+"_KAFKA_RETRY_INITIAL", "250ms")
	t.Setenv(p+"_KAFKA_RETRY_MAX", "2m")
	t.Setenv(p+"_KAFKA_SKIP_RETRY_ON_VALIDATION", "true")
	t.Setenv(p+"_KAFKA_SASL_MECHANISM", "SCRAM-SHA-512")
	t.Setenv(p+"_KAFKA_USERNAME", "svc")
	t.Setenv(p+"_KAFKA_PASSWORD", "secret")
	t.Setenv(p+"_KAFKA_TLS", "true")

	// Producer / Notify / Cache / Logger
	t.Setenv(p+"_PRODUCER_ACKS", "one")
	t.Setenv(p+"_PRODUCER_COMPRESSION", "zstd")
	t.Setenv(p+"_NOTIFY_ENABLED", "true")
	t.Setenv(p+"_NOTIFY_DISCORD_WEBHOOK", "https://discord.example/webhook")
	t.Setenv(p+"_NOTIFY_QUEUE_SIZE", "8")
	t.Setenv(p+"_CACHE_CAPACITY", "777")
	t.Setenv(p+"_CACHE_TTL", "30m")
	t.Setenv(p+"_LOGGER_IS_PROD", "true")

	c, err := cfg.LoadWithPrefix(p)
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	if c.App.Env != "staging" {
		t.Fatalf("App.Env override wrong: %q", c.App.Env)
	}
	if c.HTTP.Enabled || c.HTTP.Addr != ":9999" || c.HTTP.GinMode != "release" ||
		c.HTTP.ReadTimeout != 2*time.Second || c.HTTP.HandlerTimeout != 4500*time.Millisecond {
		t.Fatalf("HTTP overrides wrong: %+v", c.HTTP)
	}
	if !c.Tracing.Enabled || c.Tracing.ServiceName != "svc" || c.Tracing.SampleRatio != 0.25 {
		t.Fatalf("Tracing overrides wrong: %+v", c.Tracing)
	}
	if c.Postgres.DSN != "postgres://u:p@h:5432/db?sslmode=disable" || c.Postgres.MaxConns != 42 || c.Postgres.AutoMigrate {
		t.Fatalf("Postgres overrides wrong: %+v", c.Postgres)
	}
	if !slices.Equal(c.Kafka.Brokers, []string{"k1:9092", "k2:9093"}) ||
		!slices.Equal(c.Kafka.Topics, []string{"user-profile", "user-audit"}) ||
		c.Kafka.GroupID != "g-test" || c.Kafka.StartOffset != "first" {
		t.Fatalf("Kafka basic overrides wrong: %+v", c.Kafka)
	}
	if c.Kafka.MaxAttempts != 5 || c.Kafka.RetryInitial != 250*time.Millisecond ||
		c.Kafka.RetryMax != 2*time.Minute || !c.Kafka.SkipRetryOnValidation {
		t.Fatalf("Kafka retry overrides wrong: %+v", c.Kafka)
	}
	if c.Kafka.SASLMechanism != "SCRAM-SHA-512" || c.Kafka.Username != "svc" || c.Kafka.Password != "secret" || !c.Kafka.TLS {
		t.Fatalf("Kafka security overrides wrong: %+v", c.Kafka)
	}
	if c.Producer.Acks != "one" || c.Producer.Compression != "zstd" {
		t.Fatalf("Producer overrides wrong: %+v", c.Producer)
	}
	if !c.Notify.Enabled || c.Notify.DiscordWebhook != "https://discord.example/webhook" || c.Notify.QueueSize != 8 {
		t.Fatalf("Notify overrides wrong: %+v", c.Notify)
	}
	if c.Cache.Capacity != 777 || c.Cache.TTL != 30*time.Minute {
		t.Fatalf("Cache overrides wrong: %+v", c.Cache)
	}
	if !c.Logger.IsProd {
		t.Fatalf("Logger.IsProd override wrong: %+v", c.Logger)
	}
}

// Тоже меняем окружение — но с невалидным значением.
func TestLoadWithPrefix_InvalidValue_ReturnsError(t *testing.T) {
	const p = "DMS_TEST_BAD"
	t.Setenv(p+"_KAFKA_MAX_ATTEMPTS", "many")

	if _, err := cfg.LoadWithPrefix(p); err == nil {
		t.Fatalf("expected error for invalid int, got nil")
	}
}
