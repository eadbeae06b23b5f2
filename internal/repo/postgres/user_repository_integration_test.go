//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	pgrepo "github.com/Gunvolt24/dms_events/internal/repo/postgres"
	"github.com/Gunvolt24/dms_events/internal/testutil"
)

func newRepo(t *testing.T) (context.Context, *pgrepo.UserRepository) {
	t.Helper()

	// длинный контекст — только на подъём контейнера
	ctxStart, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancelStart)

	pg, stopPG, err := testutil.StartPostgresTC(ctxStart)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stopPG(context.Background()) })

	require.NoError(t, testutil.ApplyMigrationsGoose(ctxStart, pg.DSN))

	// короткий контекст — на сами БД-операции
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pool, err := pgxpool.New(ctx, pg.DSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return ctx, pgrepo.NewUserRepository(pool)
}

// 1) Сохранение и получение профиля
func TestRepo_UpsertAndGet_TC(t *testing.T) {
	t.Parallel()
	ctx, repo := newRepo(t)

	u := testutil.MakeUser()
	require.NoError(t, repo.Upsert(ctx, &u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, u.Gender, got.Gender)
	require.Equal(t, *u.Phone, *got.Phone)
	require.True(t, u.UpdatedAt.Equal(got.UpdatedAt))
}

// 2) Несуществующий id — (nil, nil)
func TestRepo_GetByID_NotFound_TC(t *testing.T) {
	t.Parallel()
	ctx, repo := newRepo(t)

	got, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}

// 3) Повторная доставка старого события не перетирает свежие данные
func TestRepo_Upsert_StaleEventIgnored_TC(t *testing.T) {
	t.Parallel()
	ctx, repo := newRepo(t)

	now := time.Now().UTC()
	fresh := testutil.MakeUser(testutil.WithUpdatedAt(now))
	fresh.Username = "fresh"
	require.NoError(t, repo.Upsert(ctx, &fresh))

	stale := fresh
	stale.Username = "stale"
	stale.UpdatedAt = now.Add(-time.Hour)
	require.NoError(t, repo.Upsert(ctx, &stale))

	got, err := repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "fresh", got.Username)

	// то же событие ещё раз — идемпотентно
	require.NoError(t, repo.Upsert(ctx, &fresh))
	newer := fresh
	newer.Username = "newer"
	newer.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Upsert(ctx, &newer))

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "newer", got.Username)
}

// 4) LastUpdated — порядок по updated_at DESC и лимит
func TestRepo_LastUpdated_TC(t *testing.T) {
	t.Parallel()
	ctx, repo := newRepo(t)

	base := time.Now().UTC().Add(-time.Hour)
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		u := testutil.MakeUser(testutil.WithUpdatedAt(base.Add(time.Duration(i) * time.Minute)))
		require.NoError(t, repo.Upsert(ctx, &u))
		ids = append(ids, u.ID)
	}

	got, err := repo.LastUpdated(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, ids[2], got[0].ID)
	require.Equal(t, ids[1], got[1].ID)

	none, err := repo.LastUpdated(ctx, 0)
	require.NoError(t, err)
	require.Nil(t, none)
}

// 5) Пустой профиль отклоняется
func TestRepo_Upsert_Empty_TC(t *testing.T) {
	t.Parallel()
	ctx, repo := newRepo(t)

	require.Error(t, repo.Upsert(ctx, nil))
}
