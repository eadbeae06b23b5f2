package kafka

import (
	"fmt"
	"time"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/segmentio/kafka-go"
)

// mode — режим работы цикла.
type mode int

const (
	modeStream mode = iota // непрерывное чтение группой (Run)
	modeSingle             // одно сообщение по offset
	modeRange              // диапазон offset’ов включительно
)

// phase — фаза цикла.
type phase int

const (
	phaseSubscribing phase = iota
	phasePolling
	phaseStopped
)

// Причины остановки (Report.StopReason и логи).
const (
	StopCanceled     = "canceled"
	StopFatal        = "fatal"
	StopNoMessage    = "no_message"
	StopPartitionEOF = "partition_eof"
	StopBrokerError  = "broker_error"
	StopEndOffset    = "end_offset"
	StopSingleDone   = "single_message_done"
)

// pollKind — результат одного poll.
type pollKind int

const (
	pollMessage pollKind = iota
	pollEmpty
	pollPartitionEOF
	pollBrokerError
	pollFatal
	pollCanceled
)

type pollResult struct {
	kind pollKind
	msg  kafka.Message
	eof  *eofMark
	err  error
}

// action — что сделать исполнителю цикла после decide.
type action int

const (
	actWait    action = iota // ничего, следующий poll
	actHandle                // обработать сообщение (processMessage)
	actLogEOF                // информационный лог конца партиции
	actBackoff               // лог ошибки брокера и пауза
	actStop                  // выход
)

// eofMark — сообщение, после которого партиция была исчерпана.
type eofMark struct {
	topic     string
	partition int
	offset    int64
}

// loopState — всё изменяемое состояние цикла. decide его не мутирует, а возвращает новое.
type loopState struct {
	mode      mode
	phase     phase
	endOffset int64 // только modeRange

	retryInitial time.Duration
	retryMax     time.Duration
	backoff      time.Duration // текущая задержка после ошибки брокера
	sleep        time.Duration // задержка для actBackoff (до джиттера)

	pendingEOF *eofMark // следующий poll вернёт partition EOF без обращения к брокеру

	stopReason string
	err        error
}

func newLoopState(m mode, retryInitial, retryMax time.Duration) loopState {
	return loopState{
		mode:         m,
		phase:        phaseSubscribing,
		retryInitial: retryInitial,
		retryMax:     retryMax,
		backoff:      retryInitial,
	}
}

// decide — чистая функция перехода: (состояние, результат poll) → (новое состояние, действие).
func decide(s loopState, r pollResult) (loopState, action) {
	if s.phase == phaseStopped {
		return s, actStop
	}
	s.phase = phasePolling
	s.sleep = 0

	switch r.kind {
	case pollCanceled:
		return stop(s, StopCanceled, r.err), actStop

	case pollFatal:
		return stop(s, StopFatal, fmt.Errorf("%w: %w", domain.ErrFatalConsumer, r.err)), actStop

	case pollEmpty:
		switch s.mode {
		case modeStream:
			return s, actWait
		default:
			return stop(s, StopNoMessage, nil), actStop
		}

	case pollPartitionEOF:
		s.pendingEOF = nil
		if s.mode == modeStream {
			return s, actLogEOF
		}
		s = stop(s, StopPartitionEOF, nil)
		return s, actLogEOF

	case pollBrokerError:
		if s.mode != modeStream {
			return stop(s, StopBrokerError, fmt.Errorf("%w: %w", domain.ErrBroker, r.err)), actBackoff
		}
		s.sleep = s.backoff
		s.backoff *= 2
		if s.backoff > s.retryMax {
			s.backoff = s.retryMax
		}
		return s, actBackoff

	case pollMessage:
		s.backoff = s.retryInitial
		if s.mode == modeRange && r.msg.Offset > s.endOffset {
			return stop(s, StopEndOffset, nil), actStop
		}
		s.pendingEOF = nil
		if r.msg.HighWaterMark > 0 && r.msg.Offset+1 >= r.msg.HighWaterMark {
			s.pendingEOF = &eofMark{topic: r.msg.Topic, partition: r.msg.Partition, offset: r.msg.Offset + 1}
		}
		switch {
		case s.mode == modeSingle:
			s = stop(s, StopSingleDone, nil)
		case s.mode == modeRange && r.msg.Offset == s.endOffset:
			s = stop(s, StopEndOffset, nil)
		}
		return s, actHandle
	}

	return stop(s, StopFatal, fmt.Errorf("%w: unknown poll result %d", domain.ErrFatalConsumer, r.kind)), actStop
}

func stop(s loopState, reason string, err error) loopState {
	s.phase = phaseStopped
	s.stopReason = reason
	s.err = err
	s.pendingEOF = nil
	return s
}
