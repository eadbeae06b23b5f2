package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/pkg/validate"
)

// ErrSchemaNotConfigured — у обработчика не задана схема. Ошибка конфигурации,
// Registry отвергает такой обработчик при регистрации.
var ErrSchemaNotConfigured = fmt.Errorf("schema is not configured: %w", domain.ErrValidation)

// JSON — адаптер: тело сообщения (JSON-объект) → *T через схему, затем Process.
// Необязательные поля-функции включают соответствующие хуки.
type JSON[T any] struct {
	HandlerName string
	Schema      ports.SchemaValidator
	Process     func(ctx context.Context, env domain.Envelope, payload *T) (any, error)

	Auth      func(ctx context.Context, env domain.Envelope) error
	Succeeded func(ctx context.Context, env domain.Envelope, result any)
	Failed    func(ctx context.Context, env domain.Envelope, err error)
	Cleanup   func(ctx context.Context, env domain.Envelope, result any)
}

var (
	_ Handler       = (*JSON[struct{}])(nil)
	_ Authenticator = (*JSON[struct{}])(nil)
	_ Finalizer     = (*JSON[struct{}])(nil)
	_ Named         = (*JSON[struct{}])(nil)
)

func (h *JSON[T]) Name() string { return h.HandlerName }

// HasSchema — схема задана (проверяется при регистрации).
func (h *JSON[T]) HasSchema() bool { return h.Schema != nil }

func (h *JSON[T]) Validate(ctx context.Context, env domain.Envelope) (any, error) {
	if h.Schema == nil {
		return nil, ErrSchemaNotConfigured
	}
	return validate.FromMap[T](ctx, h.Schema, env.Value)
}

func (h *JSON[T]) Handle(ctx context.Context, env domain.Envelope, payload any) (any, error) {
	typed, ok := payload.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}
	if h.Process == nil {
		return nil, errors.New("process func is nil")
	}
	return h.Process(ctx, env, typed)
}

func (h *JSON[T]) OnSuccess(ctx context.Context, env domain.Envelope, result any) {
	if h.Succeeded != nil {
		h.Succeeded(ctx, env, result)
	}
}

func (h *JSON[T]) OnError(ctx context.Context, env domain.Envelope, err error) {
	if h.Failed != nil {
		h.Failed(ctx, env, err)
	}
}

func (h *JSON[T]) RequiresAuth() bool { return h.Auth != nil }

func (h *JSON[T]) Authenticate(ctx context.Context, env domain.Envelope) error {
	if h.Auth == nil {
		return nil
	}
	return h.Auth(ctx, env)
}

func (h *JSON[T]) Finalize(ctx context.Context, env domain.Envelope, result any) {
	if h.Cleanup != nil {
		h.Cleanup(ctx, env, result)
	}
}
