package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/pkg/ctxmeta"
	pkgerrors "github.com/pkg/errors"
)

// ErrAttemptReused — попытку уже выполняли; повтор = новая Attempt на тот же Envelope.
var ErrAttemptReused = errors.New("handling attempt already executed")

// Attempt — одна попытка обработать сообщение.
// После Execute попытка терминальна и больше не выполняется.
type Attempt struct {
	env      domain.Envelope
	handler  Handler
	log      ports.Logger
	notifier ports.Notifier

	number              int
	maxAttempts         int
	skipRetryValidation bool
	parent              context.Context

	executed bool
	payload  any
	result   any
	err      error
	detail   string
}

// Option — настройка попытки.
type Option func(*Attempt)

// WithNotifier — канал оповещений о неудаче (должен быть неблокирующим).
func WithNotifier(n ports.Notifier) Option {
	return func(a *Attempt) { a.notifier = n }
}

// WithNumber — номер попытки (с 1) и потолок попыток для сообщения.
func WithNumber(number, maxAttempts int) Option {
	return func(a *Attempt) {
		a.number = number
		a.maxAttempts = maxAttempts
	}
}

// WithSkipRetryOnValidation — ошибка валидации сразу считается окончательной.
func WithSkipRetryOnValidation(skip bool) Option {
	return func(a *Attempt) { a.skipRetryValidation = skip }
}

// WithParent — контекст жизни консьюмера. Если он отменён, неудача попытки считается
// прерыванием (остановка сервиса), а не окончательной: без алерта, сообщение придёт повторно.
func WithParent(ctx context.Context) Option {
	return func(a *Attempt) { a.parent = ctx }
}

// NewAttempt — новая попытка над envelope. Состояние между попытками не переносится.
func NewAttempt(env domain.Envelope, h Handler, log ports.Logger, opts ...Option) *Attempt {
	a := &Attempt{env: env, handler: h, log: log, number: 1, maxAttempts: 1}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxAttempts < 1 {
		a.maxAttempts = 1
	}
	if a.number < 1 {
		a.number = 1
	}
	return a
}

// Execute — выполняет попытку. Ошибки и паники обработчика не выходят наружу:
// итог доступен через Err/Failed, возвращаемая ошибка дублирует Err.
func (a *Attempt) Execute(ctx context.Context) error {
	if a.executed {
		return ErrAttemptReused
	}
	a.executed = true

	coords := a.env.Coordinates()
	ctx = ctxmeta.WithMessage(ctx, ctxmeta.Message{
		Topic:     coords.Topic,
		Partition: coords.Partition,
		Offset:    coords.Offset,
		Key:       coords.Key,
		Attempt:   a.number,
	})

	defer a.finalize(ctx)

	if err := a.run(ctx); err != nil {
		a.fail(ctx, err)
		return a.err
	}

	a.log.Infow(ctx, "message handled successfully", a.fields()...)
	a.safeHook(ctx, "on_success", func() { a.handler.OnSuccess(ctx, a.env, a.result) })
	return nil
}

// run — auth → validate → handle. Возвращает классифицированную ошибку.
func (a *Attempt) run(ctx context.Context) error {
	if a.handler == nil {
		return fmt.Errorf("%w: handler is nil", domain.ErrValidation)
	}

	if auth, ok := a.handler.(Authenticator); ok && auth.RequiresAuth() {
		if err := a.guard(func() error { return auth.Authenticate(ctx, a.env) }); err != nil {
			return asHandling(fmt.Errorf("authenticate: %w", err))
		}
	}

	if a.env.DecodeErr != nil {
		return asValidation(a.env.DecodeErr)
	}

	var payload any
	if err := a.guard(func() error {
		var verr error
		payload, verr = a.handler.Validate(ctx, a.env)
		return verr
	}); err != nil {
		return asValidation(err)
	}
	a.payload = payload

	var result any
	if err := a.guard(func() error {
		var herr error
		result, herr = a.handler.Handle(ctx, a.env, payload)
		return herr
	}); err != nil {
		return asHandling(err)
	}
	a.result = result
	return nil
}

// fail — фиксирует ошибку, пишет лог, зовёт OnError и, если попытка последняя, отправляет алерт.
func (a *Attempt) fail(ctx context.Context, err error) {
	a.err = err
	a.detail = fmt.Sprintf("%+v", err)

	a.log.Errorw(ctx, "message handling failed",
		append(a.fields(), "error", err.Error(), "final", a.Final(), "interrupted", a.Interrupted(), "stack", a.detail)...)

	if a.handler != nil {
		a.safeHook(ctx, "on_error", func() { a.handler.OnError(ctx, a.env, err) })
	}

	if a.Final() {
		a.notify(ctx)
	}
}

// notify — best-effort: ошибки и паники канала оповещений только логируются.
func (a *Attempt) notify(ctx context.Context) {
	if a.notifier == nil {
		return
	}
	alert := ports.Alert{
		Source:      nameOf(a.handler, a.env),
		Coordinates: a.env.Coordinates(),
		Attempts:    a.number,
		Error:       a.detail,
	}
	a.safeHook(ctx, "notify", func() {
		if err := a.notifier.Notify(ctx, alert); err != nil {
			a.log.Warnw(ctx, "alert notification failed", append(a.fields(), "error", err.Error())...)
		}
	})
}

func (a *Attempt) finalize(ctx context.Context) {
	f, ok := a.handler.(Finalizer)
	if !ok {
		return
	}
	a.safeHook(ctx, "finalize", func() { f.Finalize(ctx, a.env, a.result) })
}

// guard — вызывает fn, превращая панику в ошибку со стеком.
func (a *Attempt) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// safeHook — хуки и оповещения не должны ронять попытку.
func (a *Attempt) safeHook(ctx context.Context, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorw(ctx, "handler hook panicked", append(a.fields(), "hook", hook, "panic", fmt.Sprint(r))...)
		}
	}()
	fn()
}

func (a *Attempt) fields() []any {
	return append(a.env.Coordinates().Fields(), "handler", nameOf(a.handler, a.env), "attempt", a.number)
}

// Final — неудача этой попытки окончательная: повторов больше не будет.
func (a *Attempt) Final() bool {
	if a.Interrupted() {
		return false
	}
	if a.number >= a.maxAttempts {
		return true
	}
	return a.skipRetryValidation && errors.Is(a.err, domain.ErrValidation)
}

// Interrupted — родительский контекст отменён: результат попытки не окончательный.
func (a *Attempt) Interrupted() bool {
	return a.parent != nil && a.parent.Err() != nil
}

// Err — nil, если попытка успешна (или ещё не выполнялась).
func (a *Attempt) Err() error { return a.err }

// Failed — попытка завершилась ошибкой.
func (a *Attempt) Failed() bool { return a.err != nil }

// Detail — полный текст ошибки со стеком (пусто при успехе).
func (a *Attempt) Detail() string { return a.detail }

// Payload — валидированный payload; nil, если валидация не прошла.
func (a *Attempt) Payload() any { return a.payload }

func (a *Attempt) Result() any               { return a.result }
func (a *Attempt) Number() int               { return a.number }
func (a *Attempt) Envelope() domain.Envelope { return a.env }

// asValidation — ошибка валидации со стеком; уже классифицированные не оборачиваем повторно.
func asValidation(err error) error {
	if errors.Is(err, domain.ErrValidation) {
		return pkgerrors.WithStack(err)
	}
	return pkgerrors.WithStack(fmt.Errorf("%w: %w", domain.ErrValidation, err))
}

func asHandling(err error) error {
	if errors.Is(err, domain.ErrHandling) {
		return pkgerrors.WithStack(err)
	}
	return pkgerrors.WithStack(fmt.Errorf("%w: %w", domain.ErrHandling, err))
}
