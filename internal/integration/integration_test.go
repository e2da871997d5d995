package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
	pgstore "assessment-engine/internal/infra/postgres"
	pgmigrations "assessment-engine/internal/infra/postgres/migrations"
	infraredis "assessment-engine/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedDefinition(t, ctx, pgURL, sampleDefinition(t))

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	definitions := infraredis.NewDefinitionRepository(redisClient, pgstore.NewDefinitionLoader(pool), 5*time.Minute)
	results := pgstore.NewResultStore(pool)
	engine := app.NewEngine(
		definitions,
		infraredis.NewAttemptCounter(redisClient),
		results,
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		app.WithComparators(app.ComparatorMap{"q2": app.NormalizedMatch("Paris")}),
	)

	session, err := engine.StartSession(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.AttemptNumber() != 1 {
		t.Fatalf("expected attempt 1, got %d", session.AttemptNumber())
	}

	if err := engine.RecordResponse(session.ID(), "q1", domain.SelectOption("o2")); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	if err := engine.RecordResponse(session.ID(), "q2", domain.TextAnswer("paris")); err != nil {
		t.Fatalf("record q2: %v", err)
	}

	res, err := engine.Submit(session.ID())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.ScorePercent != 100 || !res.Passed {
		t.Fatalf("expected full marks, got %d%% passed=%v", res.ScorePercent, res.Passed)
	}

	// The result must be durable in Postgres and visible to analytics.
	stored, err := results.ListResults(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(stored) != 1 || stored[0].EarnedPoints != 3 {
		t.Fatalf("expected persisted result, got %+v", stored)
	}

	report, err := engine.Aggregate(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if report.CompletedCount != 1 || report.PassRate != 100 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Questions[0].DifficultyIndex != 100 {
		t.Fatalf("expected difficulty 100 for q1, got %d", report.Questions[0].DifficultyIndex)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedDefinition(t *testing.T, ctx context.Context, dsn string, def *domain.Definition) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal definition: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quiz_definitions (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, def.ID(), string(data)); err != nil {
		t.Fatalf("insert definition: %v", err)
	}
}

func sampleDefinition(t *testing.T) *domain.Definition {
	t.Helper()
	def, err := domain.NewDefinition("quiz-1",
		domain.Config{Title: "Integration", PassingScore: 70, MaxAttempts: 3, AllowRetries: true},
		[]domain.Question{
			{
				ID: "q1", Type: domain.SingleChoice, Text: "What is 2 + 2?", Points: 1,
				Options: []domain.AnswerOption{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
					{ID: "o3", Text: "5"},
				},
			},
			{ID: "q2", Type: domain.FillInBlank, Text: "Capital of France?", Points: 2},
		})
	if err != nil {
		t.Fatalf("sample definition: %v", err)
	}
	return def
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
