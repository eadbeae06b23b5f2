package ports

import (
	"context"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/google/uuid"
)

// UserReadService — сервис чтения профилей.
type UserReadService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
	// RecentUsers — последние изменённые профили (не больше limit).
	RecentUsers(ctx context.Context, limit int) ([]*domain.UserProfile, error)
}
