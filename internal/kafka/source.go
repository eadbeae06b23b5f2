package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

// reader — минимальный контракт над источником (kafka.Reader),
// чтобы легко подменять его моками в тестах.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	SetOffset(offset int64) error
	Config() kafka.ReaderConfig
	Close() error
}

// committer — фиксация offset’а одного успешно обработанного сообщения.
type committer interface {
	Commit(ctx context.Context, msg kafka.Message) error
}

// readerCommitter — коммит через групповой reader (режим потока).
type readerCommitter struct {
	r reader
}

func (rc readerCommitter) Commit(ctx context.Context, msg kafka.Message) error {
	return rc.r.CommitMessages(ctx, msg)
}

// offsetCommitter — коммит в consumer group без членства в ней (режимы повтора):
// generation -1 и пустой member id, как у simple consumer.
type offsetCommitter struct {
	client  *kafka.Client
	groupID string
}

func (oc *offsetCommitter) Commit(ctx context.Context, msg kafka.Message) error {
	resp, err := oc.client.OffsetCommit(ctx, &kafka.OffsetCommitRequest{
		GroupID:      oc.groupID,
		GenerationID: -1,
		Topics: map[string][]kafka.OffsetCommit{
			msg.Topic: {{Partition: msg.Partition, Offset: msg.Offset + 1}},
		},
	})
	if err != nil {
		return err
	}
	for topic, parts := range resp.Topics {
		for _, p := range parts {
			if p.Error != nil {
				return fmt.Errorf("commit %s[%d]: %w", topic, p.Partition, p.Error)
			}
		}
	}
	return nil
}

// noopCommitter — повтор без consumer group: фиксировать некуда.
type noopCommitter struct{}

func (noopCommitter) Commit(context.Context, kafka.Message) error { return nil }

// poll — один FetchMessage с ограниченным ожиданием.
// Отложенный partition EOF отдаётся без обращения к брокеру.
func poll(ctx context.Context, r reader, s loopState, timeout time.Duration) pollResult {
	if s.pendingEOF != nil {
		return pollResult{kind: pollPartitionEOF, eof: s.pendingEOF}
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := r.FetchMessage(pollCtx)
	if err == nil {
		return pollResult{kind: pollMessage, msg: msg}
	}
	return classify(ctx, err)
}

// classify — раскладывает ошибку FetchMessage по видам poll.
func classify(parent context.Context, err error) pollResult {
	switch {
	case parent.Err() != nil:
		return pollResult{kind: pollCanceled, err: parent.Err()}
	case errors.Is(err, context.DeadlineExceeded):
		// истёк таймаут poll при живом родительском контексте — сообщений нет
		return pollResult{kind: pollEmpty}
	case isBrokerError(err):
		return pollResult{kind: pollBrokerError, err: err}
	default:
		return pollResult{kind: pollFatal, err: err}
	}
}

func isBrokerError(err error) bool {
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
