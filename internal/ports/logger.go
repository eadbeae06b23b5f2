package ports

import "context"

// Logger — структурный логгер консьюмера, продюсера и HTTP-слоя.
// Не паникует и ошибок не возвращает: сбой логирования не должен влиять на обработку сообщения.
// request_id и trace_id реализация берёт из ctx, координаты сообщения передаются парами
// ключ/значение (topic, partition, offset, key, attempt, error).
type Logger interface {
	Infof(ctx context.Context, format string, args ...any)
	Warnf(ctx context.Context, format string, args ...any)
	Errorf(ctx context.Context, format string, args ...any)

	Infow(ctx context.Context, msg string, keysAndValues ...any)
	Warnw(ctx context.Context, msg string, keysAndValues ...any)
	Errorw(ctx context.Context, msg string, keysAndValues ...any)
}
