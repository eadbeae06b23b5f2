package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gunvolt24/dms_events/internal/kafka/mocks"
)

func partitionReader(ctrl *gomock.Controller, offset int64) *mocks.Mockreader {
	r := mocks.NewMockreader(ctrl)
	r.EXPECT().Config().Return(kafka.ReaderConfig{Topic: "T", Partition: 0}).AnyTimes()
	r.EXPECT().SetOffset(offset).Return(nil).Times(1)
	r.EXPECT().Close().Return(nil).Times(1)
	return r
}

func TestConsumeSingleMessage_HandlesExactlyOne(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 42)
	cm := mocks.NewMockcommitter(ctrl)
	h := &countingHandler{succeedOn: 1}

	r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(42), nil).Times(1)
	cm.EXPECT().Commit(gomock.Any(), msgAt(42)).Return(nil).Times(1)

	c := newTestConsumer(r, cm, h.registry(t), nopLogger{}, nil)
	rep, err := c.ConsumeSingleMessage(context.Background(), 0, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Polled != 1 || rep.Handled != 1 || rep.Committed != 1 || rep.LastOffset != 42 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.StopReason != StopSingleDone {
		t.Fatalf("stop reason: want %s, got %s", StopSingleDone, rep.StopReason)
	}
}

func TestConsumeSingleMessage_NoMessage_ClosesReader(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 7)

	r.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, context.DeadlineExceeded)

	log, logs := observed()
	c := newTestConsumer(r, mocks.NewMockcommitter(ctrl), (&countingHandler{}).registry(t), log, nil)
	rep, err := c.ConsumeSingleMessage(context.Background(), 0, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Polled != 0 || rep.LastOffset != -1 || rep.StopReason != StopNoMessage {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if logs.FilterMessage("incoming message").Len() != 0 {
		t.Fatalf("handler path must not run without a message")
	}
}

func TestConsumeSingleMessage_HandlerFailure_NotPropagated(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 1)
	cm := mocks.NewMockcommitter(ctrl) // без EXPECT: коммита быть не должно
	h := &countingHandler{}

	r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(1), nil)

	c := newTestConsumer(r, cm, h.registry(t), nopLogger{}, nil)
	rep, err := c.ConsumeSingleMessage(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("handling failures must not surface, got %v", err)
	}
	if rep.Failed != 1 || rep.Committed != 0 || h.calls != 3 {
		t.Fatalf("unexpected outcome: report=%+v calls=%d", rep, h.calls)
	}
}

func TestConsumeSingleMessage_InvalidCoordinates(t *testing.T) {
	c := newTestConsumer(nil, nil, (&countingHandler{}).registry(t), nopLogger{}, nil)
	if _, err := c.ConsumeSingleMessage(context.Background(), -1, 0); err == nil {
		t.Fatalf("expected error for negative partition")
	}
	if _, err := c.ConsumeSingleMessage(context.Background(), 0, -5); err == nil {
		t.Fatalf("expected error for negative offset")
	}
}

func TestConsumeSingleMessage_SeekFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	r.EXPECT().SetOffset(int64(3)).Return(errors.New("seek failed"))
	r.EXPECT().Close().Return(nil)

	c := newTestConsumer(r, nil, (&countingHandler{}).registry(t), nopLogger{}, nil)
	if _, err := c.ConsumeSingleMessage(context.Background(), 0, 3); err == nil {
		t.Fatalf("expected seek error")
	}
}

// Диапазон включительно: 5, 6, 7 обработаны; после end больше не читаем
func TestConsumeRangeMessage_InclusiveEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 5)
	cm := mocks.NewMockcommitter(ctrl)
	h := &countingHandler{succeedOn: 1}

	gomock.InOrder(
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(5), nil),
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(6), nil),
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(7), nil),
	)
	cm.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	c := newTestConsumer(r, cm, h.registry(t), nopLogger{}, nil)
	rep, err := c.ConsumeRangeMessage(context.Background(), 0, 5, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Handled != 3 || rep.Committed != 3 || rep.LastOffset != 7 || rep.StopReason != StopEndOffset {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

// Пропуск offset’ов (compaction): сообщение за границей не обрабатывается
func TestConsumeRangeMessage_PastEnd_NotHandled(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 5)
	cm := mocks.NewMockcommitter(ctrl)
	h := &countingHandler{succeedOn: 1}

	gomock.InOrder(
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(5), nil),
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(6), nil),
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(9), nil),
	)
	cm.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	c := newTestConsumer(r, cm, h.registry(t), nopLogger{}, nil)
	rep, _ := c.ConsumeRangeMessage(context.Background(), 0, 5, 7)
	if h.calls != 2 || rep.Polled != 2 || rep.LastOffset != 6 {
		t.Fatalf("offset past end must not be handled: calls=%d report=%+v", h.calls, rep)
	}
	if rep.StopReason != StopEndOffset {
		t.Fatalf("stop reason: want %s, got %s", StopEndOffset, rep.StopReason)
	}
}

// Конец партиции раньше end — штатная остановка
func TestConsumeRangeMessage_StopsOnPartitionEOF(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 5)
	cm := mocks.NewMockcommitter(ctrl)
	h := &countingHandler{succeedOn: 1}

	m5, m6 := msgAt(5), msgAt(6)
	m5.HighWaterMark, m6.HighWaterMark = 7, 7
	gomock.InOrder(
		r.EXPECT().FetchMessage(gomock.Any()).Return(m5, nil),
		r.EXPECT().FetchMessage(gomock.Any()).Return(m6, nil),
	)
	cm.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	log, logs := observed()
	c := newTestConsumer(r, cm, h.registry(t), log, nil)
	rep, err := c.ConsumeRangeMessage(context.Background(), 0, 5, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.StopReason != StopPartitionEOF || rep.Handled != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if logs.FilterMessage("reached end of partition").Len() != 1 {
		t.Fatalf("want one eof log")
	}
}

func TestConsumeRangeMessage_StopsOnEmptyPoll(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 5)
	cm := mocks.NewMockcommitter(ctrl)
	h := &countingHandler{succeedOn: 1}

	gomock.InOrder(
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(5), nil),
		r.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, context.DeadlineExceeded),
	)
	cm.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil)

	c := newTestConsumer(r, cm, h.registry(t), nopLogger{}, nil)
	rep, _ := c.ConsumeRangeMessage(context.Background(), 0, 5, 10)
	if rep.StopReason != StopNoMessage || rep.Handled != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

// Ошибка брокера в режиме повтора — остановка без backoff
func TestConsumeRangeMessage_StopsOnBrokerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 5)

	r.EXPECT().FetchMessage(gomock.Any()).Return(kafka.Message{}, kafka.NotLeaderForPartition).Times(1)

	log, logs := observed()
	c := newTestConsumer(r, mocks.NewMockcommitter(ctrl), (&countingHandler{}).registry(t), log, nil)
	rep, err := c.ConsumeRangeMessage(context.Background(), 0, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.StopReason != StopBrokerError {
		t.Fatalf("stop reason: want %s, got %s", StopBrokerError, rep.StopReason)
	}
	if logs.FilterMessage("kafka broker error").Len() != 1 || logs.FilterMessage("poll will be retried").Len() != 0 {
		t.Fatalf("broker error must be logged once without retry")
	}
}

func TestConsumeRangeMessage_InvalidRange(t *testing.T) {
	c := newTestConsumer(nil, nil, (&countingHandler{}).registry(t), nopLogger{}, nil)
	if _, err := c.ConsumeRangeMessage(context.Background(), 0, 10, 5); err == nil {
		t.Fatalf("expected error for end < start")
	}
}

// Повторный прогон того же диапазона даёт ту же последовательность вызовов и логов
func TestConsumeRangeMessage_Deterministic(t *testing.T) {
	run := func() ([]string, Report) {
		ctrl := gomock.NewController(t)
		r := partitionReader(ctrl, 5)
		cm := mocks.NewMockcommitter(ctrl)
		h := &countingHandler{succeedOn: 2}

		gomock.InOrder(
			r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(5), nil),
			r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(6), nil),
		)
		cm.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		log, logs := observed()
		c := newTestConsumer(r, cm, h.registry(t), log, nil)
		rep, _ := c.ConsumeRangeMessage(context.Background(), 0, 5, 6)
		return messages(logs), rep
	}

	firstLogs, firstRep := run()
	secondLogs, secondRep := run()
	if firstRep != secondRep {
		t.Fatalf("reports differ: %+v vs %+v", firstRep, secondRep)
	}
	if len(firstLogs) != len(secondLogs) {
		t.Fatalf("log sequences differ: %v vs %v", firstLogs, secondLogs)
	}
	for i := range firstLogs {
		if firstLogs[i] != secondLogs[i] {
			t.Fatalf("log %d differs: %q vs %q", i, firstLogs[i], secondLogs[i])
		}
	}
}

func messages(logs *observer.ObservedLogs) []string {
	out := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}

// Повтор без группы: сообщения обработаны, но в отчёте нет коммитов
func TestConsumeRangeMessage_WithoutGroup_ReportsNoCommits(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := partitionReader(ctrl, 5)
	h := &countingHandler{succeedOn: 1}

	gomock.InOrder(
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(5), nil),
		r.EXPECT().FetchMessage(gomock.Any()).Return(msgAt(6), nil),
	)

	c := newTestConsumer(r, noopCommitter{}, h.registry(t), nopLogger{}, nil)
	rep, err := c.ConsumeRangeMessage(context.Background(), 0, 5, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Handled != 2 || rep.Committed != 0 || rep.StopReason != StopEndOffset {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
