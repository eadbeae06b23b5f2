package ports

import (
	"context"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *domain.UserProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
	LastUpdated(ctx context.Context, n int) ([]*domain.UserProfile, error)
}
