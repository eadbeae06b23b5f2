package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/pkg/metrics"
)

var _ ports.Notifier = (*Async)(nil)

// ErrQueueFull — очередь оповещений переполнена, алерт отброшен.
var ErrQueueFull = errors.New("alert queue is full")

// ErrClosed — диспетчер уже остановлен.
var ErrClosed = errors.New("alert dispatcher is closed")

// Async — неблокирующая обёртка над медленным каналом (HTTP webhook).
// Notify только кладёт алерт в ограниченную очередь; отправку делает одна фоновая горутина.
type Async struct {
	next    ports.Notifier
	log     ports.Logger
	timeout time.Duration

	queue chan ports.Alert
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync — запускает фоновую отправку. queueSize <= 0 → 64, timeout задаётся на одну отправку.
func NewAsync(next ports.Notifier, log ports.Logger, queueSize int, timeout time.Duration) *Async {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	a := &Async{
		next:    next,
		log:     log,
		timeout: timeout,
		queue:   make(chan ports.Alert, queueSize),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) Notify(ctx context.Context, alert ports.Alert) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- alert:
		metrics.Notifications.WithLabelValues("queued").Inc()
		return nil
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		a.log.Warnw(ctx, "alert dropped: queue is full", alert.Coordinates.Fields()...)
		return ErrQueueFull
	}
}

func (a *Async) loop() {
	defer close(a.done)
	for alert := range a.queue {
		a.send(alert)
	}
}

func (a *Async) send(alert ports.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.next.Notify(ctx, alert); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		a.log.Errorw(ctx, "alert notification failed",
			append(alert.Coordinates.Fields(), "error", err.Error())...)
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

// Close — перестаёт принимать алерты и дожидается отправки очереди (или отмены ctx).
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("alert dispatcher drain: %w", ctx.Err())
	}
}

// Nop — оповещения выключены.
type Nop struct{}

func (Nop) Notify(context.Context, ports.Alert) error { return nil }
