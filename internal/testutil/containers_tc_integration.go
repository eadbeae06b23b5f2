//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/testcontainers/testcontainers-go/wait"

	pgrepo "github.com/Gunvolt24/dms_events/internal/repo/postgres"
)

// Образы можно переопределить (например, на зеркало в CI).
var (
	postgresImage = imageFromEnv("DMS_TC_POSTGRES_IMAGE", "postgres:16-alpine")
	redpandaImage = imageFromEnv("DMS_TC_REDPANDA_IMAGE", "docker.redpanda.com/redpandadata/redpanda:v23.3.8")
)

func imageFromEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ----------------------------------------------------------------------------
// Логи жизненного цикла контейнеров
// ----------------------------------------------------------------------------

var tcLogger = log.New(os.Stdout, "[tc] ", log.LstdFlags)

func shortID(c tc.Container) string {
	id := c.GetContainerID()
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// logHooks — по строке на каждый этап; role подписывает контейнер (postgres / kafka).
func logHooks(l *log.Logger, role string) tc.ContainerLifecycleHooks {
	stage := func(format string) tc.ContainerHook {
		return func(_ context.Context, c tc.Container) error {
			l.Printf(format, role, shortID(c))
			return nil
		}
	}
	return tc.ContainerLifecycleHooks{
		PreCreates: []tc.ContainerRequestHook{
			func(_ context.Context, req tc.ContainerRequest) error {
				l.Printf("🐳 %s: creating image=%s", role, req.Image)
				return nil
			},
		},
		PostStarts:     []tc.ContainerHook{stage("✅ %s: started id=%s")},
		PostReadies:    []tc.ContainerHook{stage("🔔 %s: ready id=%s")},
		PreTerminates:  []tc.ContainerHook{stage("🛑 %s: terminating id=%s")},
		PostTerminates: []tc.ContainerHook{stage("🚫 %s: terminated id=%s")},
	}
}

// ----------------------------------------------------------------------------
// Postgres (проекция профилей)
// ----------------------------------------------------------------------------

type PGContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	DSN       string
}

// StartPostgresTC — Postgres с базой dms и пулом тех же настроек, что у сервиса.
func StartPostgresTC(ctx context.Context) (*PGContainer, func(context.Context) error, error) {
	pg, err := postgres.Run(
		ctx,
		postgresImage,
		tc.WithLifecycleHooks(logHooks(tcLogger, "postgres")),
		tc.WithExposedPorts("5432/tcp"),
		postgres.WithDatabase("dms"),
		postgres.WithUsername("app"),
		postgres.WithPassword("app"),
		tc.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("run postgres: %w", err)
	}
	terminate := func(err error) (*PGContainer, func(context.Context) error, error) {
		_ = pg.Terminate(context.Background())
		return nil, nil, err
	}

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return terminate(fmt.Errorf("conn string: %w", err))
	}

	pool, err := pgrepo.NewPool(ctx, dsn, 5)
	if err != nil {
		return terminate(fmt.Errorf("new pool: %w", err))
	}

	stop := func(c context.Context) error {
		pool.Close()
		return pg.Terminate(c)
	}
	return &PGContainer{Container: pg, DSN: dsn, Pool: pool}, stop, nil
}

// ----------------------------------------------------------------------------
// Kafka (Redpanda)
// ----------------------------------------------------------------------------

type KafkaEnv struct {
	Container *redpanda.Container
	Brokers   []string
	BaseTopic string
}

// StartKafkaTC — одноузловой Redpanda; топики тесты создают сами через EnsureTopic.
func StartKafkaTC(ctx context.Context, baseTopic string) (*KafkaEnv, func(context.Context) error, error) {
	rp, err := redpanda.Run(
		ctx,
		redpandaImage,
		tc.WithLifecycleHooks(logHooks(tcLogger, "kafka")),
		redpanda.WithAutoCreateTopics(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("run redpanda: %w", err)
	}

	seed, err := rp.KafkaSeedBroker(ctx)
	if err != nil {
		_ = tc.TerminateContainer(rp)
		return nil, nil, fmt.Errorf("seed broker: %w", err)
	}

	env := &KafkaEnv{
		Container: rp,
		Brokers:   []string{firstBootstrap(seed)},
		BaseTopic: baseTopic,
	}
	stop := func(_ context.Context) error { return tc.TerminateContainer(rp) }
	return env, stop, nil
}
