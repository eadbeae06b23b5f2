package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/pkg/metrics"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Проверка, что Producer удовлетворяет порту публикации событий.
var _ ports.EventProducer = (*Producer)(nil)

// ErrProducerClosed — Produce после Close.
var ErrProducerClosed = errors.New("kafka producer is closed")

// writer — минимальный контракт над kafka.Writer.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeliveryCallback — пользовательский обработчик подтверждения доставки.
type DeliveryCallback func(report domain.DeliveryReport)

// ticket — связь отправленного сообщения с ожидающим вызовом Produce.
// Передаётся через Message.WriterData и возвращается в Completion.
type ticket struct {
	explicit  *int
	partition atomic.Int64 // партиция, выбранная балансировщиком
	missing   atomic.Bool  // явной партиции нет в метаданных writer’а
	done      chan domain.DeliveryReport
}

// ticketBalancer — явная партиция из запроса или партиционер по умолчанию.
// Выбор записывается в ticket, чтобы отчёт о доставке содержал реальную партицию.
type ticketBalancer struct {
	fallback kafka.Balancer
}

// Balance не умеет вернуть ошибку: если явной партиции нет (метаданные изменились после
// проверки в Produce), это отмечается в ticket и доставка отчитывается как неудачная.
func (b ticketBalancer) Balance(msg kafka.Message, partitions ...int) int {
	t, _ := msg.WriterData.(*ticket)
	if t == nil {
		return b.fallback.Balance(msg, partitions...)
	}
	var p int
	switch {
	case t.explicit == nil:
		p = b.fallback.Balance(msg, partitions...)
	case slices.Contains(partitions, *t.explicit):
		p = *t.explicit
	default:
		t.missing.Store(true)
		p = b.fallback.Balance(msg, partitions...)
	}
	t.partition.Store(int64(p))
	return p
}

// unknownPartition — ошибка доставки в несуществующую партицию (как UNKNOWN_PARTITION у librdkafka).
func unknownPartition(topic string, partition int) error {
	return fmt.Errorf("partition %d of topic %q: %w", partition, topic, kafka.UnknownTopicOrPartition)
}

// Producer — асинхронный kafka.Writer, превращённый в синхронный вызов:
// Produce ждёт колбэка доставки перед возвратом. Повторов на этом уровне нет.
type Producer struct {
	w      writer
	log    ports.Logger
	tracer trace.Tracer

	keySerializer   KeySerializer
	valueSerializer ValueSerializer
	callbacks       []DeliveryCallback
	partitions      func(ctx context.Context, topic string) ([]int, error) // nil — без проверки явной партиции

	mu     sync.Mutex // один Produce в полёте: каждый вызов сам дожидается доставки
	closed bool
}

// ProducerOption — необязательная настройка Producer.
type ProducerOption func(*Producer)

func WithKeySerializer(s KeySerializer) ProducerOption {
	return func(p *Producer) { p.keySerializer = s }
}

func WithValueSerializer(s ValueSerializer) ProducerOption {
	return func(p *Producer) { p.valueSerializer = s }
}

// WithDeliveryCallback — дополнительно к логированию вызывается на каждый отчёт о доставке.
func WithDeliveryCallback(cb DeliveryCallback) ProducerOption {
	return func(p *Producer) { p.callbacks = append(p.callbacks, cb) }
}

func WithProducerTracerProvider(tp trace.TracerProvider) ProducerOption {
	return func(p *Producer) { p.tracer = tp.Tracer(tracerName) }
}

// NewProducer — конструктор поверх асинхронного kafka.Writer с батчем из одного сообщения.
func NewProducer(cfg ProducerConfig, log ports.Logger, opts ...ProducerOption) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer: no brokers configured")
	}
	acks, err := cfg.requiredAcks()
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	codec, err := cfg.compression()
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	transport, err := cfg.Security.Transport()
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	p := newProducer(nil, log, opts...)
	p.w = &kafka.Writer{
		Addr: kafka.TCP(cfg.Brokers...),
		// CRC32 с random для пустых ключей — как партиционер librdkafka по умолчанию
		Balancer:     ticketBalancer{fallback: &kafka.CRC32Balancer{}},
		RequiredAcks: acks,
		Compression:  codec,
		Async:        true,
		BatchSize:    1,
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		MaxAttempts:  1,
		Transport:    transport,
		Completion:   p.onCompletion,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Errorf(context.Background(), "kafka-go writer: "+msg, args...)
		}),
	}
	client := &kafka.Client{Addr: kafka.TCP(cfg.Brokers...), Transport: transport, Timeout: writeTimeout}
	p.partitions = func(ctx context.Context, topic string) ([]int, error) {
		return topicPartitions(ctx, client, topic)
	}
	return p, nil
}

// topicPartitions — номера партиций топика из метаданных кластера.
func topicPartitions(ctx context.Context, client *kafka.Client, topic string) ([]int, error) {
	resp, err := client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{topic}})
	if err != nil {
		return nil, err
	}
	for _, t := range resp.Topics {
		if t.Name != topic {
			continue
		}
		if t.Error != nil {
			return nil, t.Error
		}
		ids := make([]int, 0, len(t.Partitions))
		for _, part := range t.Partitions {
			ids = append(ids, part.ID)
		}
		return ids, nil
	}
	return nil, fmt.Errorf("topic %q: %w", topic, kafka.UnknownTopicOrPartition)
}

func newProducer(w writer, log ports.Logger, opts ...ProducerOption) *Producer {
	p := &Producer{
		w:               w,
		log:             log,
		tracer:          otel.Tracer(tracerName),
		keySerializer:   StringKeySerializer,
		valueSerializer: JSONValueSerializer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Produce — сериализует и отправляет одно сообщение; возвращается только после колбэка доставки.
// Локальные ошибки (сериализация, закрытый продюсер, контекст) возвращаются;
// ошибка доставки только логируется и приходит в DeliveryReport.Err.
func (p *Producer) Produce(ctx context.Context, req domain.ProducerRequest) (domain.DeliveryReport, error) {
	if req.Topic == "" {
		return domain.DeliveryReport{}, errors.New("produce: empty topic")
	}
	if req.Partition != nil && *req.Partition < 0 {
		return domain.DeliveryReport{}, fmt.Errorf("produce: invalid partition %d", *req.Partition)
	}
	key, err := p.keySerializer(req.Key)
	if err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("produce: serialize key: %w", err)
	}
	value, err := p.valueSerializer(req.Value)
	if err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("produce: serialize value: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.DeliveryReport{}, ErrProducerClosed
	}

	ctx, span := p.tracer.Start(ctx, "kafka.produce",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", req.Topic),
		))
	defer span.End()

	// Явная партиция должна существовать: иначе отказ доставки, а не запись в другую партицию.
	if req.Partition != nil && p.partitions != nil {
		known, err := p.partitions(ctx, req.Topic)
		if err != nil && !errors.Is(err, kafka.UnknownTopicOrPartition) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "metadata failed")
			return domain.DeliveryReport{}, fmt.Errorf("produce: partitions of %s: %w: %w", req.Topic, domain.ErrBroker, err)
		}
		if !slices.Contains(known, *req.Partition) {
			report := domain.DeliveryReport{
				Topic:     req.Topic,
				Partition: *req.Partition,
				Offset:    -1,
				Key:       key,
				Err:       unknownPartition(req.Topic, *req.Partition),
			}
			p.deliveryReport(report)
			span.RecordError(report.Err)
			span.SetStatus(codes.Error, "delivery failed")
			return report, nil
		}
	}

	t := &ticket{explicit: req.Partition, done: make(chan domain.DeliveryReport, 1)}
	t.partition.Store(-1)
	msg := kafka.Message{
		Topic:      req.Topic,
		Key:        key,
		Value:      value,
		Headers:    toHeaders(req.Headers),
		WriterData: t,
	}
	carrier := headerCarrier{headers: &msg.Headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	injectRequestID(ctx, carrier)

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return domain.DeliveryReport{}, fmt.Errorf("produce: %w", err)
	}

	// flush: ждём подтверждения брокера (или отказа)
	select {
	case report := <-t.done:
		span.SetAttributes(attribute.Int("messaging.kafka.destination.partition", report.Partition))
		if report.Err != nil {
			span.RecordError(report.Err)
			span.SetStatus(codes.Error, "delivery failed")
		}
		return report, nil
	case <-ctx.Done():
		return domain.DeliveryReport{}, fmt.Errorf("produce: waiting for delivery: %w", ctx.Err())
	}
}

// onCompletion — колбэк kafka.Writer по завершении записи батча.
func (p *Producer) onCompletion(msgs []kafka.Message, err error) {
	for _, m := range msgs {
		t, _ := m.WriterData.(*ticket)

		report := domain.DeliveryReport{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       m.Key,
			Err:       err,
		}
		if t != nil {
			if chosen := t.partition.Load(); chosen >= 0 {
				report.Partition = int(chosen)
			}
			if t.missing.Load() && t.explicit != nil {
				report.Err = errors.Join(unknownPartition(m.Topic, *t.explicit), err)
			}
		}

		p.deliveryReport(report)

		if t != nil {
			select {
			case t.done <- report:
			default:
			}
		}
	}
}

// deliveryReport — лог, метрика и пользовательские колбэки по одному отчёту.
func (p *Producer) deliveryReport(report domain.DeliveryReport) {
	ctx := context.Background()
	if report.Err != nil {
		metrics.KafkaMessagesProduced.WithLabelValues(report.Topic, "failed").Inc()
		p.log.Errorw(ctx, "delivery message failed",
			"topic", report.Topic, "key", string(report.Key), "error", report.Err.Error())
	} else {
		metrics.KafkaMessagesProduced.WithLabelValues(report.Topic, "delivered").Inc()
		p.log.Infow(ctx, "delivery message successfully",
			"topic", report.Topic, "partition", report.Partition, "offset", report.Offset)
	}

	for _, cb := range p.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.log.Errorw(ctx, "delivery callback panicked", "panic", fmt.Sprint(r))
				}
			}()
			cb(report)
		}()
	}
}

// Close — дожидается отправки буфера writer’а и закрывает его. Повторный вызов ничего не делает.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.w.Close()
}
