// Пакет handler — контракт обработчика сообщений и одна попытка его выполнения (Attempt).
// Брокер здесь не виден: коммит и повторы целиком на стороне консьюмера.
package handler

import (
	"context"

	"github.com/Gunvolt24/dms_events/internal/domain"
)

// Handler — обработчик сообщений одного типа (топика).
type Handler interface {
	// Validate — приводит тело сообщения к типизированному payload по схеме.
	Validate(ctx context.Context, env domain.Envelope) (any, error)
	// Handle — бизнес-логика над валидированным payload.
	Handle(ctx context.Context, env domain.Envelope, payload any) (any, error)
	OnSuccess(ctx context.Context, env domain.Envelope, result any)
	OnError(ctx context.Context, env domain.Envelope, err error)
}

// Authenticator — необязательная проверка прав перед обработкой.
// Ошибка считается обычной ошибкой обработки.
type Authenticator interface {
	RequiresAuth() bool
	Authenticate(ctx context.Context, env domain.Envelope) error
}

// Finalizer — необязательный хук, вызывается на любом пути выхода из попытки.
type Finalizer interface {
	Finalize(ctx context.Context, env domain.Envelope, result any)
}

// Named — обработчик может назвать себя для логов и алертов.
type Named interface {
	Name() string
}

// nameOf — имя обработчика (или топик сообщения, если имени нет).
func nameOf(h Handler, env domain.Envelope) string {
	if n, ok := h.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return env.Topic
}
