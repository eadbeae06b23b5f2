package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/handler"
	"github.com/Gunvolt24/dms_events/pkg/metrics"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// outcome — итог processMessage по одному сообщению.
type outcome struct {
	attempts    int
	succeeded   bool
	committed   bool
	interrupted bool // остановка консьюмера посреди повторов
	err         error
}

// processMessage — попытки обработки одного сообщения: каждая попытка создаёт новый Attempt
// над тем же Envelope. Успех → синхронный коммит offset’а и выход; все попытки неудачны →
// выход без коммита (сообщение будет доставлено повторно).
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, commit committer) outcome {
	metrics.KafkaMessagesConsumed.WithLabelValues(msg.Topic).Inc()

	carrier := headerCarrier{headers: &msg.Headers}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	ctx = extractRequestID(ctx, carrier)
	ctx, span := c.tracer.Start(ctx, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.destination.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		))
	defer span.End()

	env := c.envelope(msg)
	c.log.Infow(ctx, "incoming message", env.Coordinates().Fields()...)

	// Отсутствие обработчика — ошибка конфигурации; Attempt превратит её в ошибку валидации.
	h, lookupErr := c.handlers.Lookup(msg.Topic)
	if lookupErr != nil {
		c.log.Errorw(ctx, "no handler for topic", append(env.Coordinates().Fields(), "error", lookupErr.Error())...)
	}

	var out outcome
	for n := 1; n <= c.cfg.MaxAttempts; n++ {
		if ctx.Err() != nil {
			break
		}
		out.attempts = n
		attempt := handler.NewAttempt(env, h, c.log,
			handler.WithNumber(n, c.cfg.MaxAttempts),
			handler.WithNotifier(c.notifier),
			handler.WithSkipRetryOnValidation(c.cfg.SkipRetryOnValidation),
			handler.WithParent(ctx),
		)

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.ProcessTimeout)
		err := attempt.Execute(attemptCtx)
		cancel()

		if err == nil {
			metrics.KafkaHandlingAttempts.WithLabelValues(msg.Topic, "success").Inc()
			metrics.KafkaMessagesProcessed.WithLabelValues(msg.Topic).Inc()
			out.succeeded = true
			out.committed = c.commitSafely(ctx, msg, commit)
			span.SetAttributes(attribute.Int("dms.attempts", n))
			return out
		}

		metrics.KafkaHandlingAttempts.WithLabelValues(msg.Topic, "error").Inc()
		out.err = err
		if attempt.Final() {
			break
		}
	}

	// Остановка: без коммита и без алерта, после рестарта сообщение придёт снова.
	if err := ctx.Err(); err != nil {
		out.interrupted = true
		if out.err == nil {
			out.err = err
		}
		span.SetStatus(codes.Error, "interrupted")
		c.log.Warnw(ctx, "message interrupted by shutdown, left uncommitted",
			append(env.Coordinates().Fields(), "attempts", out.attempts, "error", errString(out.err))...)
		return out
	}

	metrics.KafkaMessagesFailed.WithLabelValues(msg.Topic, failureReason(out.err)).Inc()
	span.RecordError(out.err)
	span.SetStatus(codes.Error, "message abandoned")
	c.log.Warnw(ctx, "message abandoned without commit",
		append(env.Coordinates().Fields(), "attempts", out.attempts, "error", errString(out.err))...)
	return out
}

// envelope — нормализованное представление сообщения. Ошибки декодирования
// сохраняются в Envelope и становятся ошибкой валидации внутри попытки.
func (c *Consumer) envelope(msg kafka.Message) domain.Envelope {
	env := domain.Envelope{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		RawKey:        msg.Key,
		RawValue:      msg.Value,
		Headers:       headersMap(msg.Headers),
		Time:          msg.Time,
		HighWaterMark: msg.HighWaterMark,
	}

	key, keyErr := c.keyDecoder(msg.Key)
	value, valueErr := c.valueDecoder(msg.Value)
	env.Key = key
	env.Value = value
	env.DecodeErr = errors.Join(keyErr, valueErr)
	return env
}

// commitSafely коммитит offset; ошибка коммита — ошибка брокера, цикл продолжается.
func (c *Consumer) commitSafely(ctx context.Context, msg kafka.Message, commit committer) bool {
	// повтор без группы: offset никуда не фиксируется и в отчёт как коммит не идёт
	if _, noop := commit.(noopCommitter); noop {
		return false
	}
	if commitErr := commit.Commit(ctx, msg); commitErr != nil {
		metrics.KafkaCommits.WithLabelValues(msg.Topic, "error").Inc()
		metrics.KafkaBrokerErrors.WithLabelValues(msg.Topic).Inc()
		c.log.Errorw(ctx, "commit failed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
			"error", fmt.Errorf("%w: %w", domain.ErrBroker, commitErr).Error())
		return false
	}
	metrics.KafkaCommits.WithLabelValues(msg.Topic, "ok").Inc()
	return true
}

// brokerError — лог и метрика ошибки брокера при poll.
func (c *Consumer) brokerError(ctx context.Context, r reader, err error) {
	topic := r.Config().Topic
	if topic == "" && len(c.cfg.Topics) > 0 {
		topic = c.cfg.Topics[0]
	}
	metrics.KafkaBrokerErrors.WithLabelValues(topic).Inc()
	c.log.Errorw(ctx, "kafka broker error", "topic", topic, "error", errString(err))
}

// kafkaErrorLogger — внутренние ошибки kafka-go в наш логгер.
func (c *Consumer) kafkaErrorLogger() kafka.LoggerFunc {
	return func(msg string, args ...any) {
		c.log.Errorf(context.Background(), "kafka-go: "+msg, args...)
	}
}

// sleepWithBackoff ждет backoff или останавливается по контексту.
func (c *Consumer) sleepWithBackoff(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// withJitterEqual — умеренная случайность: половина задержки фиксирована,
// вторая половина — случайная. Баланс между стабильностью и случайностью.
func (c *Consumer) withJitterEqual(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	jitter := time.Duration(c.jitterRand.Int63n(int64(d-half) + 1))
	return half + jitter
}

func failureReason(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return "validation"
	}
	return "handling"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
