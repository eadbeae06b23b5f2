package app_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/dms_events/config"
	"github.com/Gunvolt24/dms_events/internal/app"
	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports/mocks"
)

// логгер-заглушка
type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}
func (nopLogger) Infow(context.Context, string, ...any)  {}
func (nopLogger) Warnw(context.Context, string, ...any)  {}
func (nopLogger) Errorw(context.Context, string, ...any) {}

// фейковый консьюмер, который ждёт отмены контекста
type fakeConsumer struct {
	runCalls   int32
	closeCalls int32
}

func (f *fakeConsumer) Run(ctx context.Context) error {
	atomic.AddInt32(&f.runCalls, 1)
	<-ctx.Done()
	return ctx.Err()
}
func (f *fakeConsumer) Close() error {
	atomic.AddInt32(&f.closeCalls, 1)
	return nil
}

func TestAppRun_GracefulShutdown(t *testing.T) {
	// HTTP-сервер на случайном свободном порту
	srv := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NewServeMux(),
	}

	fc := &fakeConsumer{}
	a := &app.App{
		Logger:        nopLogger{},
		HTTPServer:    srv,
		KafkaConsumer: fc,
	}

	// Запуск и быстрая остановка
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if atomic.LoadInt32(&fc.runCalls) == 0 {
		t.Fatalf("consumer.Run should be called")
	}
	if atomic.LoadInt32(&fc.closeCalls) == 0 {
		t.Fatalf("consumer.Close should be called")
	}
}

// консьюмер, которому после отмены нужно время, чтобы дообработать сообщение
type slowStopConsumer struct {
	finished atomic.Bool
	closed   atomic.Bool
}

func (s *slowStopConsumer) Run(ctx context.Context) error {
	<-ctx.Done()
	time.Sleep(150 * time.Millisecond)
	s.finished.Store(true)
	return ctx.Err()
}

func (s *slowStopConsumer) Close() error {
	s.closed.Store(true)
	return nil
}

func TestAppRun_WaitsForConsumerBeforeReturn(t *testing.T) {
	sc := &slowStopConsumer{}
	a := &app.App{
		Logger:        nopLogger{},
		HTTPServer:    &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()},
		KafkaConsumer: sc,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, a.Run(ctx))
	require.True(t, sc.finished.Load(), "Run must not return while the consumer is still handling a message")
	require.True(t, sc.closed.Load())
}

// ошибка HTTP-сервера останавливает и консьюмера
func TestAppRun_HTTPErrorStopsConsumer(t *testing.T) {
	fc := &fakeConsumer{}
	a := &app.App{
		Logger:        nopLogger{},
		HTTPServer:    &http.Server{Addr: "256.0.0.1:bad", Handler: http.NewServeMux()},
		KafkaConsumer: fc,
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after HTTP server failure")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&fc.closeCalls))
}

func TestAppRun_FatalConsumerErrorReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	consumer := mocks.NewMockMessageConsumer(ctrl)

	fatal := errors.Join(domain.ErrFatalConsumer, errors.New("unexpected"))
	consumer.EXPECT().Run(gomock.Any()).Return(fatal)
	consumer.EXPECT().Close().Return(nil)

	a := &app.App{
		Logger:        nopLogger{},
		HTTPServer:    &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()},
		KafkaConsumer: consumer,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := a.Run(ctx)
	require.ErrorIs(t, err, domain.ErrFatalConsumer)
}

func TestConfigMapping(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Kafka: config.Kafka{
			Brokers:               []string{"k1:9092"},
			Topics:                []string{"user-profile"},
			GroupID:               "g",
			StartOffset:           "first",
			MaxAttempts:           4,
			PollTimeout:           time.Second,
			ProcessTimeout:        2 * time.Second,
			RetryInitial:          time.Second,
			RetryMax:              10 * time.Second,
			SkipRetryOnValidation: true,
			SASLMechanism:         "PLAIN",
			Username:              "u",
			Password:              "p",
			TLS:                   true,
		},
		Producer: config.Producer{Acks: "one", Compression: "lz4", WriteTimeout: 3 * time.Second},
	}

	cc := app.ConsumerConfigFrom(cfg)
	require.Equal(t, []string{"k1:9092"}, cc.Brokers)
	require.Equal(t, []string{"user-profile"}, cc.Topics)
	require.Equal(t, 4, cc.MaxAttempts)
	require.True(t, cc.SkipRetryOnValidation)
	require.Equal(t, "PLAIN", cc.Security.SASLMechanism)
	require.True(t, cc.Security.TLS)

	pc := app.ProducerConfigFrom(cfg)
	require.Equal(t, cc.Brokers, pc.Brokers)
	require.Equal(t, "one", pc.Acks)
	require.Equal(t, "lz4", pc.Compression)
	require.Equal(t, cc.Security, pc.Security)
}
