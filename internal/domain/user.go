package domain

import (
	"time"

	"github.com/google/uuid"
)

// Gender — пол пользователя в профиле.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// UserProfile — проекция профиля пользователя, приходящая событием из Kafka.
type UserProfile struct {
	ID        uuid.UUID  `json:"id" validate:"required"`
	Username  string     `json:"username" validate:"required,max=64"`
	Email     string     `json:"email" validate:"required,email"`
	RoleID    int        `json:"role_id" validate:"gte=0"`
	IsActive  bool       `json:"is_active"`
	Phone     *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	Gender    Gender     `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}
