package kafka

import (
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Значения по умолчанию для незаданных полей ConsumerConfig.
const (
	defaultPollTimeout    = 1 * time.Second
	defaultProcessTimeout = 5 * time.Second
	defaultRetryInitial   = 1 * time.Second
	defaultRetryMax       = 30 * time.Second
)

// ConsumerConfig — параметры консьюмера. Читаются один раз при старте.
type ConsumerConfig struct {
	Brokers     []string
	Topics      []string
	GroupID     string
	StartOffset string // first|last (по умолчанию last)

	MaxAttempts           int           // потолок попыток на сообщение (< 1 → 1)
	PollTimeout           time.Duration // ожидание одного poll
	ProcessTimeout        time.Duration // таймаут одной попытки обработки
	RetryInitial          time.Duration // backoff после ошибки брокера
	RetryMax              time.Duration
	SkipRetryOnValidation bool

	Security Security
}

// normalized — копия с подставленными значениями по умолчанию.
func (c ConsumerConfig) normalized() ConsumerConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaultPollTimeout
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = defaultProcessTimeout
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = defaultRetryInitial
	}
	if c.RetryMax <= 0 {
		c.RetryMax = defaultRetryMax
	}
	if c.RetryMax < c.RetryInitial {
		c.RetryMax = c.RetryInitial
	}
	topics := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	c.Topics = topics
	return c
}

func (c ConsumerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka consumer: no brokers configured")
	}
	if len(c.Topics) == 0 {
		return errors.New("kafka consumer: no topics configured")
	}
	return nil
}

// ReaderConfig — конфигурация группового reader’а (режим потока) с ручным коммитом.
// Dialer подставляет конструктор консьюмера.
func (c *ConsumerConfig) ReaderConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		CommitInterval: 0,
	}

	if len(c.Topics) == 1 {
		rc.Topic = c.Topics[0]
	} else {
		rc.GroupTopics = c.Topics
	}

	switch strings.ToLower(strings.TrimSpace(c.StartOffset)) {
	case "first":
		rc.StartOffset = kafka.FirstOffset
	default:
		rc.StartOffset = kafka.LastOffset
	}

	return rc
}

// partitionReaderConfig — reader на одну партицию первого топика, без группы (режимы повтора).
func (c *ConsumerConfig) partitionReaderConfig(partition int) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:   c.Brokers,
		Topic:     c.Topics[0],
		Partition: partition,
	}
}
