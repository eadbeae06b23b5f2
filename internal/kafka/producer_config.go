package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultBatchTimeout = 5 * time.Millisecond
)

// ProducerConfig — параметры продюсера.
type ProducerConfig struct {
	Brokers      []string
	Acks         string // all|one|none (по умолчанию all)
	Compression  string // gzip|snappy|lz4|zstd|"" (без сжатия)
	WriteTimeout time.Duration
	BatchTimeout time.Duration // сколько writer ждёт добора батча; батч у нас из одного сообщения

	Security Security
}

func (c ProducerConfig) requiredAcks() (kafka.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(c.Acks)) {
	case "", "all", "-1":
		return kafka.RequireAll, nil
	case "one", "1":
		return kafka.RequireOne, nil
	case "none", "0":
		return kafka.RequireNone, nil
	default:
		return 0, fmt.Errorf("unsupported acks value: %q", c.Acks)
	}
}

func (c ProducerConfig) compression() (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(c.Compression)) {
	case "", "none":
		return compress.None, nil
	case "gzip":
		return compress.Gzip, nil
	case "snappy":
		return compress.Snappy, nil
	case "lz4":
		return compress.Lz4, nil
	case "zstd":
		return compress.Zstd, nil
	default:
		return compress.None, fmt.Errorf("unsupported compression codec: %q", c.Compression)
	}
}
