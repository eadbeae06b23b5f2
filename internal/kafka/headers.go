package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Gunvolt24/dms_events/pkg/ctxmeta"
)

// HeaderRequestID — request_id HTTP-запроса, опубликовавшего сообщение.
const HeaderRequestID = "x-request-id"

// headerCarrier — заголовки сообщения как носитель trace-контекста.
type headerCarrier struct {
	headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// injectRequestID — request_id из контекста в заголовки (явно заданный заголовок не трогаем).
func injectRequestID(ctx context.Context, c headerCarrier) {
	rid, ok := ctxmeta.RequestIDFromContext(ctx)
	if !ok || c.Get(HeaderRequestID) != "" {
		return
	}
	c.Set(HeaderRequestID, rid)
}

// extractRequestID — обратная операция на стороне консьюмера.
func extractRequestID(ctx context.Context, c headerCarrier) context.Context {
	return ctxmeta.WithRequestID(ctx, c.Get(HeaderRequestID))
}

// headersMap — заголовки в виде map (для Envelope); при повторе ключа побеждает последний.
func headersMap(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

// toHeaders — обратное преобразование для продюсера.
func toHeaders(m map[string]string) []kafka.Header {
	if len(m) == 0 {
		return nil
	}
	out := make([]kafka.Header, 0, len(m))
	for k, v := range m {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}
