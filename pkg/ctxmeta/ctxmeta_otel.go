//go:build otel && !gopls

package ctxmeta

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceFromContext — идентификаторы активного спана (HTTP-запрос или обработка сообщения).
func TraceFromContext(ctx context.Context) (Trace, bool) {
	if ctx == nil {
		return Trace{}, false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return Trace{}, false
	}
	return Trace{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Remote:  sc.IsRemote(),
	}, true
}
