package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_Valid(t *testing.T) {
	v := NewSchemaValidator()
	u := &domain.UserProfile{ID: uuid.New(), Username: "alice", Email: "alice@example.com", Gender: domain.GenderFemale}
	require.NoError(t, v.Validate(context.Background(), u))
}

func TestSchemaValidator_Violations(t *testing.T) {
	v := NewSchemaValidator()
	u := &domain.UserProfile{Username: "", Email: "not-an-email", RoleID: -1, Gender: "robot"}

	err := v.Validate(context.Background(), u)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.True(t, errors.Is(err, domain.ErrValidation))
	require.Contains(t, err.Error(), "id обязателен")
	require.Contains(t, err.Error(), "username обязателен")
	require.Contains(t, err.Error(), "email некорректен")
	require.Contains(t, err.Error(), "role_id должен быть >= 0")
	require.Contains(t, err.Error(), "gender должен быть одним из")
}

func TestSchemaValidator_Nil(t *testing.T) {
	err := NewSchemaValidator().Validate(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSchemaValidator_NotStruct(t *testing.T) {
	err := NewSchemaValidator().Validate(context.Background(), 42)
	require.ErrorIs(t, err, ErrInvalidPayload)
}
