package app

import (
	"context"

	"github.com/Gunvolt24/dms_events/config"
	"github.com/Gunvolt24/dms_events/internal/kafka"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/pkg/logger"
	"github.com/Gunvolt24/dms_events/pkg/metrics"
)

// Replayer — повторная обработка конкретных сообщений (одно сообщение или диапазон)
// тем же конвейером, что и воркер.
type Replayer struct {
	Logger   ports.Logger
	consumer *kafka.Consumer
}

// ReplayOptions — параметры запуска replay поверх конфига приложения.
type ReplayOptions struct {
	Topic   string // пусто → первый топик из конфига
	GroupID string // пусто → offset’ы не коммитятся
}

// NewReplayer — собирает консьюмер для режимов повтора. Продюсер и HTTP не поднимаются.
func NewReplayer(ctx context.Context, cfg *config.Config, opts ReplayOptions) (*Replayer, Cleanup, error) {
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd, cfg.App.Env)
	if err != nil {
		return nil, func() {}, err
	}

	metrics.MustRegister()

	// явный -topic может отсутствовать в DMS_KAFKA_TOPICS
	c, err := buildCore(ctx, cfg, logg, nil, opts.Topic)
	if err != nil {
		_ = cleanupLogger()
		return nil, func() {}, err
	}

	notifier := newNotifier(cfg, logg)

	consumerCfg := ConsumerConfigFrom(cfg)
	consumerCfg.GroupID = opts.GroupID
	if opts.Topic != "" {
		consumerCfg.Topics = []string{opts.Topic}
	}

	consumerOpts := []kafka.ConsumerOption{}
	if notifier != nil {
		consumerOpts = append(consumerOpts, kafka.WithNotifier(notifier))
	}
	consumer, err := kafka.NewConsumer(consumerCfg, c.registry, logg, consumerOpts...)
	if err != nil {
		if notifier != nil {
			_ = notifier.Close(context.Background())
		}
		c.pool.Close()
		_ = cleanupLogger()
		return nil, func() {}, err
	}

	cleanup := func() {
		if notifier != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Notify.Timeout)
			if err := notifier.Close(flushCtx); err != nil {
				logg.Warnf(ctx, "notifier close: %v", err)
			}
			cancel()
		}
		c.pool.Close()
		_ = cleanupLogger()
	}

	return &Replayer{Logger: logg, consumer: consumer}, cleanup, nil
}

// Single — режим B: ровно одно сообщение по координатам.
func (r *Replayer) Single(ctx context.Context, partition int, offset int64) (kafka.Report, error) {
	return r.consumer.ConsumeSingleMessage(ctx, partition, offset)
}

// Range — режим C: диапазон [start, end] включительно.
func (r *Replayer) Range(ctx context.Context, partition int, start, end int64) (kafka.Report, error) {
	return r.consumer.ConsumeRangeMessage(ctx, partition, start, end)
}
