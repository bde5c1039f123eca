package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formship-quiz-service/internal/app"
	"formship-quiz-service/internal/auth"
	"formship-quiz-service/internal/config"
	"formship-quiz-service/internal/domain"
	"formship-quiz-service/internal/infra/memory"
	"formship-quiz-service/internal/infra/postgres"
	infraredis "formship-quiz-service/internal/infra/redis"
	"formship-quiz-service/internal/logging"
	transport "formship-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const devJWTSecret = "dev-only-insecure-secret"

// backend is what a storage implementation must provide to run the service.
type backend interface {
	memory.CatalogLoader
	memory.SeedTarget
	app.QuizWriter
	app.ParticipantRepository
	app.ParticipationRepository
	app.InvitationRepository
	app.AccountRepository
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// NewSeedCmd loads the demo account and quizzes into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo quizzes into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			logger := logging.New(cfg.Log.Level, cfg.Log.NoColor)
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := memory.Seed(cmd.Context(), postgres.NewStore(pool)); err != nil {
				return err
			}
			logger.Info("demo data loaded", "account_id", memory.DemoAccountID, "owner", memory.DemoOwnerEmail)
			return nil
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.NoColor)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		logger.Warn("JWT secret not configured, using an insecure development secret")
		secret = devJWTSecret
	}
	issuer := auth.NewIssuer(secret,
		config.TTLDuration(cfg.Auth.ParticipantTokenTTL, 24*time.Hour),
		config.TTLDuration(cfg.Auth.AccountTokenTTL, 24*time.Hour),
	)

	var store backend
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		logger.Info("using postgres store")
	} else {
		store = memory.NewStore()
		logger.Warn("postgres url not configured, data is kept in memory")
	}
	if cfg.Quiz.SeedDemo || cfg.Postgres.URL == "" {
		switch err := memory.Seed(ctx, store); {
		case err == nil:
			logger.Info("demo data loaded", "owner", memory.DemoOwnerEmail)
		case errors.Is(err, domain.ErrEmailTaken):
			logger.Debug("demo data already present")
		default:
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	questionTTL := config.TTLDuration(cfg.Quiz.QuestionCacheTTL, 0)
	var catalog app.QuizCatalog
	var denylist app.TokenDenylist
	if redisClient != nil {
		catalog = infraredis.NewQuizRepository(redisClient, store, questionTTL)
		denylist = infraredis.NewTokenDenylist(redisClient)
	} else {
		catalog = memory.NewQuizRepository(store, questionTTL)
		denylist = memory.NewTokenDenylist()
	}

	ledger := app.NewLedger(store, logger)
	access := app.NewAccessService(store, ledger, logger)
	participants := app.NewParticipantService(store, store, issuer, denylist, logger)
	accounts := app.NewAccountService(store, issuer, logger)
	hub := app.NewResultsHub()

	handler := transport.NewHandler(transport.Services{
		Resolver:     app.NewResolver(participants, accounts),
		Quizzes:      app.NewQuizService(catalog, access, ledger, participants, store, hub, logger),
		Catalog:      app.NewCatalogService(catalog, store, ledger, logger),
		Invitations:  app.NewInvitationService(store, catalog, logger),
		Participants: participants,
		Accounts:     accounts,
	}, logger)

	router := handler.Router(transport.Options{
		RequestTimeout: config.TTLDuration(cfg.Server.RequestTimeout, 15*time.Second),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// no read/write deadlines: they would outlive the upgrade and cut websocket feeds
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
