package eventhandlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/eventhandlers"
	"github.com/Gunvolt24/dms_events/internal/handler"
	"github.com/Gunvolt24/dms_events/pkg/validate"
)

type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}
func (nopLogger) Infow(context.Context, string, ...any)  {}
func (nopLogger) Warnw(context.Context, string, ...any)  {}
func (nopLogger) Errorw(context.Context, string, ...any) {}

type fakeSaver struct {
	saved []*domain.UserProfile
	err   error
}

func (f *fakeSaver) SaveProfile(_ context.Context, u *domain.UserProfile) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, u)
	return nil
}

func envelope(t *testing.T, key any, body string) domain.Envelope {
	t.Helper()
	var value map[string]any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&value))
	return domain.Envelope{Topic: eventhandlers.UserProfileTopic, Offset: 1, Key: key, Value: value}
}

const validProfile = `{
	"id": "3f0e8b44-5a55-4d0b-9a1c-2f6b3c7d8e90",
	"username": "alice",
	"email": "alice@example.com",
	"role_id": 2,
	"is_active": true,
	"gender": "female",
	"birthdate": "1990-05-17T00:00:00Z"
}`

var profileID = uuid.MustParse("3f0e8b44-5a55-4d0b-9a1c-2f6b3c7d8e90")

func TestUserProfile_Saved(t *testing.T) {
	saver := &fakeSaver{}
	h := eventhandlers.NewUserProfile(saver, validate.NewSchemaValidator(), nopLogger{})

	a := handler.NewAttempt(envelope(t, profileID, validProfile), h, nopLogger{})
	require.NoError(t, a.Execute(context.Background()))

	require.Len(t, saver.saved, 1)
	require.Equal(t, profileID, saver.saved[0].ID)
	require.Equal(t, 2, saver.saved[0].RoleID)
	require.Equal(t, domain.GenderFemale, saver.saved[0].Gender)
	require.Equal(t, profileID, a.Result())
}

func TestUserProfile_NilKeyAccepted(t *testing.T) {
	saver := &fakeSaver{}
	h := eventhandlers.NewUserProfile(saver, validate.NewSchemaValidator(), nopLogger{})

	a := handler.NewAttempt(envelope(t, nil, validProfile), h, nopLogger{})
	require.NoError(t, a.Execute(context.Background()))
	require.Len(t, saver.saved, 1)
}

func TestUserProfile_InvalidPayload_ValidationError(t *testing.T) {
	saver := &fakeSaver{}
	h := eventhandlers.NewUserProfile(saver, validate.NewSchemaValidator(), nopLogger{})

	a := handler.NewAttempt(envelope(t, nil, `{"id":"3f0e8b44-5a55-4d0b-9a1c-2f6b3c7d8e90","username":"bob","email":"nope","gender":"robot"}`), h, nopLogger{})
	err := a.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Empty(t, saver.saved)
}

func TestUserProfile_KeyMismatch_HandlingError(t *testing.T) {
	saver := &fakeSaver{}
	h := eventhandlers.NewUserProfile(saver, validate.NewSchemaValidator(), nopLogger{})

	a := handler.NewAttempt(envelope(t, uuid.New(), validProfile), h, nopLogger{})
	err := a.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrHandling)
	require.Empty(t, saver.saved)
}

func TestUserProfile_SaveError_HandlingError(t *testing.T) {
	saver := &fakeSaver{err: errors.New("db down")}
	h := eventhandlers.NewUserProfile(saver, validate.NewSchemaValidator(), nopLogger{})

	a := handler.NewAttempt(envelope(t, profileID, validProfile), h, nopLogger{})
	err := a.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrHandling)
	require.Contains(t, a.Detail(), "db down")
}

func TestRegister_DefaultTopic(t *testing.T) {
	reg := handler.NewRegistry()
	require.NoError(t, eventhandlers.Register(reg, "", &fakeSaver{}, validate.NewSchemaValidator(), nopLogger{}))

	_, err := reg.Lookup(eventhandlers.UserProfileTopic)
	require.NoError(t, err)

	// повторная регистрация на тот же топик — ошибка
	require.Error(t, eventhandlers.Register(reg, eventhandlers.UserProfileTopic, &fakeSaver{}, validate.NewSchemaValidator(), nopLogger{}))
}
