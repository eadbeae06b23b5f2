package ports

import "context"

// MessageConsumer — потоковое чтение топиков в группе (режим Run).
// Run блокирует до отмены ctx (возвращает ctx.Err()) или до фатальной ошибки
// (обёрнутый domain.ErrFatalConsumer); ошибки обработки сообщений наружу не выходят.
// Close идемпотентен.
type MessageConsumer interface {
	Run(ctx context.Context) error
	Close() error
}
