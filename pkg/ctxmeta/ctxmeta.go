// Пакет ctxmeta — нейтральный слой для работы с метаданными,
// которые прокидываются через context.Context (request_id, trace_id, координаты сообщения).
// Идея: HTTP-слой, консьюмер и логгер зависят от небольшого общего пакета, но не друг от друга.
package ctxmeta

import "context"

type ctxKey string

const (
	// Ключи контекста (неэкспортируемые типы — чтобы избежать коллизий).
	KeyRequestID ctxKey = "request_id"
	KeyMessage   ctxKey = "message"
)

// Message — координаты сообщения Kafka, обрабатываемого в текущем контексте.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Attempt   int
}

// Trace — идентификаторы спана для логов. Remote — спан пришёл извне
// (traceparent в HTTP-заголовке или в заголовках сообщения).
type Trace struct {
	TraceID string
	SpanID  string
	Remote  bool
}

// WithRequestID кладёт request_id в контекст (если пусто — ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(KeyRequestID).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithMessage кладёт координаты сообщения в контекст (пустой topic — ничего не делает).
func WithMessage(ctx context.Context, msg Message) context.Context {
	if ctx == nil || msg.Topic == "" {
		return ctx
	}
	return context.WithValue(ctx, KeyMessage, msg)
}

// MessageFromContext достаёт координаты сообщения из контекста.
func MessageFromContext(ctx context.Context) (Message, bool) {
	if ctx == nil {
		return Message{}, false
	}
	if v, ok := ctx.Value(KeyMessage).(Message); ok {
		return v, true
	}
	return Message{}, false
}
