package ports

import (
	"context"

	"github.com/Gunvolt24/dms_events/internal/domain"
)

// Alert — оповещение о сообщении, которое не удалось обработать.
type Alert struct {
	Source      string // имя обработчика / компонента
	Coordinates domain.Coordinates
	Attempts    int
	Error       string // полный текст ошибки со стеком
}

// Notifier — внешний канал оповещений (best-effort).
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}
