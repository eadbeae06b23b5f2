package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/dms_events/config"
	cachemem "github.com/Gunvolt24/dms_events/internal/cache/memory"
	"github.com/Gunvolt24/dms_events/internal/eventhandlers"
	"github.com/Gunvolt24/dms_events/internal/handler"
	"github.com/Gunvolt24/dms_events/internal/kafka"
	"github.com/Gunvolt24/dms_events/internal/notify"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/internal/repo/postgres"
	"github.com/Gunvolt24/dms_events/internal/usecase"
	"github.com/Gunvolt24/dms_events/pkg/validate"
)

// securityFrom — SASL/TLS из секции Kafka.
func securityFrom(k config.Kafka) kafka.Security {
	return kafka.Security{
		SASLMechanism:         k.SASLMechanism,
		Username:              k.Username,
		Password:              k.Password,
		TLS:                   k.TLS,
		TLSInsecureSkipVerify: k.TLSInsecureSkipVerify,
		CACertPath:            k.CACertPath,
	}
}

// ConsumerConfigFrom — параметры консьюмера из конфига приложения.
func ConsumerConfigFrom(cfg *config.Config) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:               cfg.Kafka.Brokers,
		Topics:                cfg.Kafka.Topics,
		GroupID:               cfg.Kafka.GroupID,
		StartOffset:           cfg.Kafka.StartOffset,
		MaxAttempts:           cfg.Kafka.MaxAttempts,
		PollTimeout:           cfg.Kafka.PollTimeout,
		ProcessTimeout:        cfg.Kafka.ProcessTimeout,
		RetryInitial:          cfg.Kafka.RetryInitial,
		RetryMax:              cfg.Kafka.RetryMax,
		SkipRetryOnValidation: cfg.Kafka.SkipRetryOnValidation,
		Security:              securityFrom(cfg.Kafka),
	}
}

// ProducerConfigFrom — параметры продюсера (брокеры и безопасность общие с консьюмером).
func ProducerConfigFrom(cfg *config.Config) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Acks:         cfg.Producer.Acks,
		Compression:  cfg.Producer.Compression,
		WriteTimeout: cfg.Producer.WriteTimeout,
		BatchTimeout: cfg.Producer.BatchTimeout,
		Security:     securityFrom(cfg.Kafka),
	}
}

// applyGinMode — устанавливает режим Gin по строке;
// неизвестное значение → debug и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// newNotifier — Discord через асинхронную очередь, если оповещения включены; иначе nil.
func newNotifier(cfg *config.Config, log ports.Logger) *notify.Async {
	if !cfg.Notify.Enabled {
		return nil
	}
	if cfg.Notify.DiscordWebhook == "" {
		log.Warnf(context.Background(), "notifications enabled but DISCORD_WEBHOOK is empty, alerts are disabled")
		return nil
	}
	discord := notify.NewDiscord(notify.DiscordConfig{
		WebhookURL:  cfg.Notify.DiscordWebhook,
		BotName:     cfg.Notify.BotName,
		Environment: cfg.App.Env,
		Timeout:     cfg.Notify.Timeout,
	})
	return notify.NewAsync(discord, log, cfg.Notify.QueueSize, cfg.Notify.Timeout)
}

// core — общие для воркера и replay зависимости: БД, сервис профилей, реестр обработчиков.
type core struct {
	pool     *pgxpool.Pool
	service  *usecase.UserService
	registry *handler.Registry
}

// buildCore — extraTopics дополняют топики конфига (replay с явным -topic).
func buildCore(ctx context.Context, cfg *config.Config, log ports.Logger, producer ports.EventProducer, extraTopics ...string) (*core, error) {
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	cache := cachemem.NewLRUCacheTTL(cfg.Cache.Capacity, cfg.Cache.TTL)
	service := usecase.NewUserService(postgres.NewUserRepository(pool), cache, producer, log)

	registry, err := profileRegistry(service, log, append(slices.Clone(cfg.Kafka.Topics), extraTopics...)...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &core{pool: pool, service: service, registry: registry}, nil
}

// profileRegistry — на каждом топике события профиля; пустые и повторяющиеся имена пропускаются.
func profileRegistry(saver eventhandlers.ProfileSaver, log ports.Logger, topics ...string) (*handler.Registry, error) {
	registry := handler.NewRegistry()
	schema := validate.NewSchemaValidator()
	seen := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic == "" {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		if err := eventhandlers.Register(registry, topic, saver, schema, log); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
