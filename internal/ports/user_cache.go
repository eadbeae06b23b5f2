package ports

import (
	"context"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/google/uuid"
)

// UserCache — интерфейс кэша профилей.
// Требования к реализации: потокобезопасность; доступ по ключу не хуже O(1); возврат копий сущности.
type UserCache interface {
	// Get — вернуть профиль по ID; (user, true) при попадании, (nil, false) при промахе/истечении.
	Get(ctx context.Context, id uuid.UUID) (*domain.UserProfile, bool)

	// Set — сохранить/обновить профиль в кэше.
	Set(ctx context.Context, user *domain.UserProfile) error

	// WarmUp — массовая загрузка кэша (например, при старте).
	WarmUp(ctx context.Context, users []*domain.UserProfile) error
}
