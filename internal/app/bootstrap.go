package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gunvolt24/dms_events/config"
	"github.com/Gunvolt24/dms_events/internal/kafka"
	"github.com/Gunvolt24/dms_events/internal/ports"
	rest "github.com/Gunvolt24/dms_events/internal/transport/http"
	"github.com/Gunvolt24/dms_events/pkg/logger"
	"github.com/Gunvolt24/dms_events/pkg/metrics"
	"github.com/Gunvolt24/dms_events/pkg/telemetry"
)

const defaultGracefulTimeout = 5 * time.Second

// App — собранное приложение и его внешние интерфейсы (HTTP, consumer).
type App struct {
	Logger          ports.Logger          // логгер
	HTTPServer      *http.Server          // HTTP-сервер (API или только /metrics)
	KafkaConsumer   ports.MessageConsumer // консьюмер сообщений
	gracefulTimeout time.Duration         // время ожидания завершения HTTP-сервера
}

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// setupTracing — OTEL при включённой конфигурации; по умолчанию no-op.
func setupTracing(ctx context.Context, cfg *config.Config, log ports.Logger) func(context.Context) error {
	if !cfg.Tracing.Enabled {
		return func(context.Context) error { return nil }
	}
	shutdown, err := telemetry.SetupTracing(ctx, telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Warnf(ctx, "failed to setup tracing: %v", err)
		return func(context.Context) error { return nil }
	}
	log.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
		cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
	return shutdown
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	// Логгер (dev/prod режим задаётся конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd, cfg.App.Env)
	if err != nil {
		return nil, func() {}, err
	}

	// Откат уже созданного при ошибке сборки (в обратном порядке).
	var undo []func()
	fail := func(err error) (*App, Cleanup, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		logg.Errorf(ctx, "bootstrap failed: %v", err)
		_ = cleanupLogger()
		return nil, func() {}, err
	}

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	shutdownTrace := setupTracing(ctx, cfg, logg)
	undo = append(undo, func() { _ = shutdownTrace(context.Background()) })

	// Продюсер нужен только для POST /events/:topic.
	var producer *kafka.Producer
	if cfg.Producer.Enabled {
		producer, err = kafka.NewProducer(ProducerConfigFrom(cfg), logg)
		if err != nil {
			return fail(err)
		}
		undo = append(undo, func() { _ = producer.Close() })
	}

	var eventProducer ports.EventProducer
	if producer != nil {
		eventProducer = producer
	}
	c, err := buildCore(ctx, cfg, logg, eventProducer)
	if err != nil {
		return fail(err)
	}
	undo = append(undo, c.pool.Close)

	// Прогрев кэша
	if err := c.service.WarmUpCache(ctx, cfg.Cache.WarmUp); err != nil {
		logg.Warnf(ctx, "warm-up cache failed: %v", err)
	}

	notifier := newNotifier(cfg, logg)
	consumerOpts := []kafka.ConsumerOption{}
	if notifier != nil {
		consumerOpts = append(consumerOpts, kafka.WithNotifier(notifier))
		undo = append(undo, func() { _ = notifier.Close(context.Background()) })
	}

	consumer, err := kafka.NewConsumer(ConsumerConfigFrom(cfg), c.registry, logg, consumerOpts...)
	if err != nil {
		return fail(err)
	}

	app := &App{
		Logger:          logg,
		HTTPServer:      newHTTPServer(ctx, cfg, logg, c, producer != nil),
		KafkaConsumer:   consumer,
		gracefulTimeout: defaultGracefulTimeout,
	}

	// Очистка ресурсов (в обратном порядке).
	cleanup := func() {
		if err := consumer.Close(); err != nil {
			logg.Warnf(ctx, "kafka consumer close error: %v", err)
		}
		if notifier != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Notify.Timeout)
			if err := notifier.Close(flushCtx); err != nil {
				logg.Warnf(ctx, "notifier close: %v", err)
			}
			cancel()
		}
		if producer != nil {
			if err := producer.Close(); err != nil {
				logg.Warnf(ctx, "kafka producer close error: %v", err)
			}
		}
		c.pool.Close()
		if err := shutdownTrace(context.Background()); err != nil {
			logg.Warnf(ctx, "shutdown tracing: %v", err)
		}
		if err := cleanupLogger(); err != nil {
			logg.Warnf(ctx, "cleanup logger: %v", err)
		}
	}

	return app, cleanup, nil
}

// newHTTPServer — API-роутер; при выключенном API остаётся только /metrics на отдельном адресе.
func newHTTPServer(ctx context.Context, cfg *config.Config, log ports.Logger, c *core, publish bool) *http.Server {
	if !cfg.HTTP.Enabled {
		return &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		}
	}

	applyGinMode(ctx, cfg.HTTP.GinMode, log)

	// Имя сервиса для otelgin (только при включённом трейсинге).
	otelServiceName := ""
	if cfg.Tracing.Enabled {
		otelServiceName = cfg.Tracing.ServiceName
	}

	opts := []rest.Option{rest.WithReadiness(c.pool.Ping)}
	if publish {
		opts = append(opts, rest.WithPublisher(c.service, cfg.Kafka.Topics...))
	}
	h := rest.NewHandler(c.service, log, cfg.HTTP.HandlerTimeout, opts...)

	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           rest.NewRouter(h, otelServiceName),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
}

// Run — запускает HTTP-сервер и консьюмера; ждёт отмены контекста или ошибки и останавливает их.
// Фатальная ошибка консьюмера возвращается вызывающей стороне.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Консьюмер останавливается и по сигналу, и по ошибке HTTP-сервера.
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	consumerDone := make(chan struct{})

	// Запуск консьюмера.
	go func() {
		defer close(consumerDone)
		a.Logger.Infof(ctx, "kafka consumer starting")
		if err := a.KafkaConsumer.Run(consumerCtx); err != nil {
			errCh <- err
		}
	}()

	// Запуск HTTP-сервера.
	go func() {
		a.Logger.Infof(ctx, "http server starting (addr=%s)", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Ожидание сигнала остановки или фоновой ошибки.
	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")
	case err := <-errCh:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			a.Logger.Infof(ctx, "background component stopped: %v", err)
		} else {
			a.Logger.Errorf(ctx, "background error: %v", err)
			runErr = err
		}
	}

	gt := a.gracefulTimeout
	if gt <= 0 {
		gt = defaultGracefulTimeout
	}

	// Корректная остановка HTTP-сервера.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warnf(ctx, "http server shutdown failed: %v", err)
	} else {
		a.Logger.Infof(ctx, "http server stopped gracefully")
	}

	// Остановка Kafka-консьюмера: дожидаемся текущего сообщения, прежде чем cleanup закроет пул БД.
	stopConsumer()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		a.Logger.Warnf(ctx, "kafka consumer did not stop within %s", gt)
	}
	if err := a.KafkaConsumer.Close(); err != nil {
		a.Logger.Warnf(ctx, "kafka consumer close error: %v", err)
	}

	a.Logger.Infof(ctx, "service stopped")
	return runErr
}
