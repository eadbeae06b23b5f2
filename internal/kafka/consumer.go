package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Gunvolt24/dms_events/internal/handler"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Проверка, что Consumer удовлетворяет интерфейсу верхнего уровня (порт приложения).
var _ ports.MessageConsumer = (*Consumer)(nil)

// ErrGroupRequired — режиму потока нужна consumer group (коммиты и подписка на несколько топиков).
// Повтор (ConsumeSingleMessage / ConsumeRangeMessage) работает и без неё.
var ErrGroupRequired = errors.New("kafka consumer: group id is required for stream mode")

const tracerName = "github.com/Gunvolt24/dms_events/internal/kafka"

// Report — итог прогона в режимах повтора (одно сообщение / диапазон).
type Report struct {
	Polled     int    `json:"polled"`      // получено сообщений для обработки
	Handled    int    `json:"handled"`     // обработано успешно
	Committed  int    `json:"committed"`   // успешных коммитов
	Failed     int    `json:"failed"`      // брошено после исчерпания попыток
	LastOffset int64  `json:"last_offset"` // offset последнего обработанного сообщения (-1 — не было)
	StopReason string `json:"stop_reason"` // см. Stop*
}

// Consumer — цикл чтения/обработки/коммита поверх kafka-go.
// Один экземпляр = один рабочий цикл; одновременно обрабатывается одно сообщение.
type Consumer struct {
	cfg      ConsumerConfig
	handlers *handler.Registry
	log      ports.Logger
	notifier ports.Notifier
	tracer   trace.Tracer

	keyDecoder   KeyDeserializer
	valueDecoder ValueDeserializer

	dialer       *kafka.Dialer
	newReader    func(kafka.ReaderConfig) reader
	newCommitter func() committer

	jitterRand *rand.Rand

	mu        sync.Mutex
	reader    reader // групповой reader режима потока, создаётся в Run
	closeOnce sync.Once
}

// ConsumerOption — необязательная настройка Consumer.
type ConsumerOption func(*Consumer)

// WithNotifier — канал оповещений о сообщениях, брошенных после всех попыток.
func WithNotifier(n ports.Notifier) ConsumerOption {
	return func(c *Consumer) { c.notifier = n }
}

func WithKeyDeserializer(d KeyDeserializer) ConsumerOption {
	return func(c *Consumer) { c.keyDecoder = d }
}

func WithValueDeserializer(d ValueDeserializer) ConsumerOption {
	return func(c *Consumer) { c.valueDecoder = d }
}

// WithTracerProvider — по умолчанию берётся глобальный otel провайдер.
func WithTracerProvider(tp trace.TracerProvider) ConsumerOption {
	return func(c *Consumer) { c.tracer = tp.Tracer(tracerName) }
}

// NewConsumer — конструктор. Для каждого топика из конфига должен быть зарегистрирован обработчик.
func NewConsumer(cfg ConsumerConfig, handlers *handler.Registry, log ports.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if handlers == nil {
		return nil, errors.New("kafka consumer: handler registry is nil")
	}
	for _, topic := range cfg.Topics {
		if _, err := handlers.Lookup(topic); err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
	}

	dialer, err := cfg.Security.Dialer()
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	transport, err := cfg.Security.Transport()
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	c := &Consumer{
		cfg:          cfg,
		handlers:     handlers,
		log:          log,
		tracer:       otel.Tracer(tracerName),
		keyDecoder:   UUIDKeyDeserializer,
		valueDecoder: JSONValueDeserializer,
		dialer:       dialer,
		newReader:    func(rc kafka.ReaderConfig) reader { return kafka.NewReader(rc) },
		// jitterRand — источник случайности, чтобы рассинхронизировать экспоненциальный backoff.
		jitterRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	c.newCommitter = func() committer {
		if cfg.GroupID == "" {
			return noopCommitter{}
		}
		return &offsetCommitter{
			client:  &kafka.Client{Addr: kafka.TCP(cfg.Brokers...), Transport: transport, Timeout: dialTimeout},
			groupID: cfg.GroupID,
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run — режим потока: подписка группой на все топики, ручной коммит после успешной обработки.
// Ошибки брокера логируются и переживаются с backoff; непредвиденная ошибка останавливает цикл
// (ErrFatalConsumer); отмена контекста — единственный штатный выход, возвращается ctx.Err().
// Reader закрывается на любом пути выхода.
func (c *Consumer) Run(ctx context.Context) error {
	if c.cfg.GroupID == "" {
		return ErrGroupRequired
	}
	r := c.groupReader()
	defer func() { _ = c.Close() }()

	rc := r.Config()
	c.log.Infow(ctx, "kafka consumer started",
		"topics", c.cfg.Topics, "group_id", rc.GroupID, "brokers", rc.Brokers, "max_attempts", c.cfg.MaxAttempts)

	state := newLoopState(modeStream, c.cfg.RetryInitial, c.cfg.RetryMax)
	state = c.loop(ctx, r, readerCommitter{r: r}, state, nil)

	c.log.Infow(ctx, "kafka consumer stopped", "reason", state.stopReason)
	return state.err
}

// ConsumeSingleMessage — повтор одного сообщения: партиция первого топика, seek на offset,
// ровно один poll. Без членства в группе; reader закрывается всегда.
func (c *Consumer) ConsumeSingleMessage(ctx context.Context, partition int, offset int64) (Report, error) {
	if partition < 0 || offset < 0 {
		return Report{LastOffset: -1}, fmt.Errorf("invalid coordinates partition=%d offset=%d", partition, offset)
	}
	state := newLoopState(modeSingle, c.cfg.RetryInitial, c.cfg.RetryMax)
	return c.replay(ctx, partition, offset, state)
}

// ConsumeRangeMessage — повтор диапазона [start, end] включительно.
// Останавливается на таймауте poll, конце партиции, ошибке, отмене или offset > end.
// Ошибки обработки наружу не поднимаются.
func (c *Consumer) ConsumeRangeMessage(ctx context.Context, partition int, start, end int64) (Report, error) {
	if partition < 0 || start < 0 || end < start {
		return Report{LastOffset: -1}, fmt.Errorf("invalid range partition=%d start=%d end=%d", partition, start, end)
	}
	state := newLoopState(modeRange, c.cfg.RetryInitial, c.cfg.RetryMax)
	state.endOffset = end
	return c.replay(ctx, partition, start, state)
}

func (c *Consumer) replay(ctx context.Context, partition int, offset int64, state loopState) (Report, error) {
	report := Report{LastOffset: -1}

	rc := c.cfg.partitionReaderConfig(partition)
	rc.Dialer = c.dialer
	rc.ErrorLogger = c.kafkaErrorLogger()
	r := c.newReader(rc)
	defer func() {
		if err := r.Close(); err != nil {
			c.log.Warnw(ctx, "close partition reader failed", "error", err.Error())
		}
	}()

	if err := r.SetOffset(offset); err != nil {
		return report, fmt.Errorf("seek %s[%d] to %d: %w", rc.Topic, partition, offset, err)
	}
	c.log.Infow(ctx, "replay started",
		"topic", rc.Topic, "partition", partition, "offset", offset, "end_offset", state.endOffset)

	state = c.loop(ctx, r, c.newCommitter(), state, &report)
	report.StopReason = state.stopReason

	c.log.Infow(ctx, "replay finished",
		"topic", rc.Topic, "partition", partition, "reason", report.StopReason,
		"polled", report.Polled, "handled", report.Handled, "committed", report.Committed, "failed", report.Failed)
	return report, nil
}

// loop — общий исполнитель: poll → decide → действие, пока состояние не станет STOPPED.
func (c *Consumer) loop(ctx context.Context, r reader, commit committer, state loopState, report *Report) loopState {
	state.phase = phasePolling
	for {
		res := poll(ctx, r, state, c.cfg.PollTimeout)

		var act action
		state, act = decide(state, res)

		switch act {
		case actHandle:
			out := c.processMessage(ctx, res.msg, commit)
			if report != nil {
				report.record(res.msg, out)
			}
		case actLogEOF:
			if res.eof != nil {
				c.log.Infow(ctx, "reached end of partition",
					"topic", res.eof.topic, "partition", res.eof.partition, "offset", res.eof.offset)
			}
		case actBackoff:
			c.brokerError(ctx, r, res.err)
			if state.phase != phaseStopped {
				sleep := c.withJitterEqual(state.sleep)
				c.log.Warnw(ctx, "poll will be retried", "backoff", sleep.String())
				if !c.sleepWithBackoff(ctx, sleep) {
					state = stop(state, StopCanceled, ctx.Err())
				}
			}
		case actStop:
			if res.kind == pollFatal {
				c.log.Errorw(ctx, "unexpected consumer error", "error", errString(res.err))
			}
		case actWait:
		}

		if state.phase == phaseStopped {
			return state
		}
	}
}

func (r *Report) record(msg kafka.Message, out outcome) {
	r.Polled++
	r.LastOffset = msg.Offset
	if out.succeeded {
		r.Handled++
	} else {
		r.Failed++
	}
	if out.committed {
		r.Committed++
	}
}

// groupReader — reader режима потока; создаётся при первом Run.
func (c *Consumer) groupReader() reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		rc := c.cfg.ReaderConfig()
		rc.Dialer = c.dialer
		rc.ErrorLogger = c.kafkaErrorLogger()
		c.reader = c.newReader(rc)
	}
	return c.reader
}

// Close - закрывает reader. Вызывается при остановке приложения.
func (c *Consumer) Close() (retErr error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		r := c.reader
		c.mu.Unlock()
		if r != nil {
			retErr = r.Close()
		}
	})
	return retErr
}

// Config — нормализованная конфигурация (значения по умолчанию подставлены).
func (c *Consumer) Config() ConsumerConfig { return c.cfg }
