// Package eventhandlers — обработчики доменных событий, регистрируемые по топикам.
package eventhandlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/handler"
	"github.com/Gunvolt24/dms_events/internal/ports"
)

// UserProfileTopic — топик событий изменения профиля по умолчанию.
const UserProfileTopic = "user-profile"

// ProfileSaver — сохранение провалидированного профиля (usecase.UserService).
type ProfileSaver interface {
	SaveProfile(ctx context.Context, user *domain.UserProfile) error
}

// NewUserProfile — обработчик событий профиля: схема UserProfile, затем upsert в проекцию.
// Ключ сообщения (UUID), если он есть, обязан совпадать с id профиля.
func NewUserProfile(saver ProfileSaver, schema ports.SchemaValidator, log ports.Logger) *handler.JSON[domain.UserProfile] {
	return &handler.JSON[domain.UserProfile]{
		HandlerName: "user-profile",
		Schema:      schema,
		Process: func(ctx context.Context, env domain.Envelope, user *domain.UserProfile) (any, error) {
			if key, ok := env.Key.(uuid.UUID); ok && key != user.ID {
				return nil, fmt.Errorf("message key %s does not match profile id %s", key, user.ID)
			}
			if err := saver.SaveProfile(ctx, user); err != nil {
				return nil, err
			}
			return user.ID, nil
		},
		Failed: func(ctx context.Context, env domain.Envelope, err error) {
			log.Warnw(ctx, "user profile event rejected", "offset", env.Offset, "error", err.Error())
		},
	}
}

// Register — регистрирует все обработчики сервиса; topic переопределяет имя топика профилей.
func Register(reg *handler.Registry, topic string, saver ProfileSaver, schema ports.SchemaValidator, log ports.Logger) error {
	if topic == "" {
		topic = UserProfileTopic
	}
	return reg.Register(topic, NewUserProfile(saver, schema, log))
}
