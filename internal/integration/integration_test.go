package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"formship-quiz-service/internal/app"
	"formship-quiz-service/internal/auth"
	"formship-quiz-service/internal/domain"
	"formship-quiz-service/internal/infra/postgres"
	pgmigrations "formship-quiz-service/internal/infra/postgres/migrations"
	infraredis "formship-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type stack struct {
	store        *postgres.Store
	participants *app.ParticipantService
	accounts     *app.AccountService
	catalog      *app.CatalogService
	quizzes      *app.QuizService
	ledger       *app.Ledger
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := postgres.NewStore(pool)
	catalog := infraredis.NewQuizRepository(redisClient, store, 5*time.Minute)
	issuer := auth.NewIssuer("integration-secret", time.Hour, time.Hour)

	ledger := app.NewLedger(store, logger)
	access := app.NewAccessService(store, ledger, logger)
	participants := app.NewParticipantService(store, store, issuer, infraredis.NewTokenDenylist(redisClient), logger)
	return &stack{
		store:        store,
		participants: participants,
		accounts:     app.NewAccountService(store, issuer, logger),
		catalog:      app.NewCatalogService(catalog, store, ledger, logger),
		quizzes:      app.NewQuizService(catalog, access, ledger, participants, store, app.NewResultsHub(), logger),
		ledger:       ledger,
	}
}

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	owner, err := s.accounts.Register(ctx, "owner@example.com", "Owner", "owner-pw", "Acme")
	if err != nil {
		t.Fatalf("register account: %v", err)
	}
	ownerReq, err := s.accounts.Authenticate(ctx, owner.Token)
	if err != nil {
		t.Fatalf("authenticate owner: %v", err)
	}

	quiz, questions, err := s.catalog.CreateQuiz(ctx, ownerReq, app.CreateQuizRequest{
		AccountID:     owner.AccountID,
		Title:         "Arithmetic",
		AccessControl: domain.AccessLoginRequired,
		Questions: []app.NewQuestion{
			{Text: "2 + 2", Options: map[string]string{"A": "3", "B": "4"}, CorrectAnswer: "B"},
			{Text: "3 + 3", Options: map[string]string{"A": "6", "B": "7"}, CorrectAnswer: "A"},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := s.catalog.SetPublished(ctx, ownerReq, quiz.ID, true); err != nil {
		t.Fatalf("publish: %v", err)
	}

	reg, err := s.participants.Register(ctx, "alice@example.com", "Alice", "alice-pw")
	if err != nil {
		t.Fatalf("register participant: %v", err)
	}
	alice := domain.ParticipantRequester{Participant: reg.Participant}

	decision, err := s.quizzes.CheckAccess(ctx, quiz.ID, alice, "")
	if err != nil || !decision.Allowed {
		t.Fatalf("expected access, got %+v err=%v", decision, err)
	}

	sub := app.SubmitRequest{Submission: app.Submission{Answers: map[string]app.Answer{
		questions[0].ID: {Value: "B"},
		questions[1].ID: {Value: "B"},
	}}}
	res, err := s.quizzes.Submit(ctx, quiz.ID, alice, sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score == nil || *res.Score != 1 || res.Total != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := s.quizzes.Submit(ctx, quiz.ID, alice, sub); domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict on resubmit, got %v", err)
	}

	rows, err := s.catalog.Participations(ctx, ownerReq, quiz.ID)
	if err != nil {
		t.Fatalf("list participations: %v", err)
	}
	if len(rows) != 1 || !rows[0].HasCompleted || rows[0].FinalScore == nil || *rows[0].FinalScore != 1 {
		t.Fatalf("unexpected ledger rows %+v", rows)
	}
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	if _, err := s.participants.Register(ctx, "dup@example.com", "One", "pw-one"); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := s.store.CreateParticipant(ctx, domain.Participant{
		ID:           "p-dup",
		Email:        "DUP@example.com",
		PasswordHash: []byte("x"),
		CreatedAt:    time.Now().UTC(),
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// anonymous participants may share an email
	for i := 0; i < 2; i++ {
		if _, err := s.participants.CreateAnonymous(ctx, "dup@example.com", "Anon"); err != nil {
			t.Fatalf("anonymous %d: %v", i, err)
		}
	}
}

func TestConcurrentLinkCreatesOneRow(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	owner, err := s.accounts.Register(ctx, "race@example.com", "Owner", "owner-pw", "Race")
	if err != nil {
		t.Fatalf("register account: %v", err)
	}
	ownerReq, err := s.accounts.Authenticate(ctx, owner.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	quiz, _, err := s.catalog.CreateQuiz(ctx, ownerReq, app.CreateQuizRequest{
		AccountID: owner.AccountID,
		Title:     "Race",
		Questions: []app.NewQuestion{{Text: "q", Options: map[string]string{"A": "a", "B": "b"}, CorrectAnswer: "A"}},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	reg, err := s.participants.Register(ctx, "runner@example.com", "Runner", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	requester := domain.ParticipantRequester{Participant: reg.Participant}

	var wg sync.WaitGroup
	ids := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.ledger.Link(ctx, requester, quiz)
			if err != nil {
				t.Errorf("link: %v", err)
				return
			}
			ids <- p.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Fatalf("expected a single participation id, got %v", seen)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
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
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
