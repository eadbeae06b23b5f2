//go:build integration

package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/Gunvolt24/dms_events/internal/domain"
)

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func UniqSuffix() string { return randHex(6) }

// Мини-генератор валидного профиля
func MakeUser(opts ...func(*domain.UserProfile)) domain.UserProfile {
	suffix := UniqSuffix()
	phone := "+7900" + suffix[:7]
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)

	u := domain.UserProfile{
		ID:        uuid.New(),
		Username:  "user-" + suffix,
		Email:     "user-" + suffix + "@example.com",
		RoleID:    1,
		IsActive:  true,
		Phone:     &phone,
		Gender:    domain.GenderOther,
		Birthdate: &birth,
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithUpdatedAt — профиль с заданным моментом изменения.
func WithUpdatedAt(ts time.Time) func(*domain.UserProfile) {
	return func(u *domain.UserProfile) { u.UpdatedAt = ts.UTC().Truncate(time.Microsecond) }
}
