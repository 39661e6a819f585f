package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	natsgo "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	natsmirror "trivia-service/internal/infra/nats"
	pgstore "trivia-service/internal/infra/postgres"
	rediscache "trivia-service/internal/infra/redis"
	transport "trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	checks := map[string]transport.Checker{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
		checks["redis"] = transport.CheckerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		checks["postgres"] = transport.CheckerFunc(pool.Ping)
		log.Info().Msg("connected to postgres")
	}

	var nc *natsgo.Conn
	if cfg.NATS.URL != "" {
		var err error
		nc, err = natsmirror.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Close()
		checks["nats"] = transport.CheckerFunc(func(context.Context) error {
			if !nc.IsConnected() {
				return errors.New("nats not connected")
			}
			return nil
		})
		log.Info().Str("url", cfg.NATS.URL).Msg("connected to nats")
	}

	questions := newQuestionRepository(cfg, redisClient, pool)

	var sessions app.SessionRepository = memory.NewSessionStore()
	if redisClient != nil {
		owner, _ := os.Hostname()
		owner += "/" + uuid.NewString()
		sessions = rediscache.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 3*time.Hour), owner)
	}

	hub := transport.NewHub()
	var publisher app.Publisher = hub
	if nc != nil {
		publisher = natsmirror.NewMirror(hub, nc, cfg.NATS.SubjectPrefix)
	}

	registry := app.NewRegistry(sessions, questions, publisher, app.WithSettings(app.Settings{
		QuestionSeconds: cfg.Game.QuestionSeconds,
		Retention:       config.TTLDuration(cfg.Game.Retention, app.DefaultRetention),
		CodeAttempts:    cfg.Game.CodeAttempts,
		Selection:       cfg.Game.Selection,
	}))

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: transport.NewRouter(registry, hub, transport.RouterOptions{
			PublicURL:      cfg.Server.PublicURL,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Checks:         checks,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting trivia service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		registry.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newQuestionRepository picks the bank source (Postgres, JSON file, built-in sample) and the
// cache in front of it (Redis when configured, in-process otherwise).
func newQuestionRepository(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) app.QuestionRepository {
	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	switch {
	case pool != nil:
		loader = pgstore.NewQuestionLoader(pool)
	case cfg.Questions.File != "":
		loader = memory.NewFileQuestionLoader(cfg.Questions.File)
	}

	ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		return rediscache.NewQuestionRepository(redisClient, loader, ttl)
	}
	return memory.NewQuestionRepository(loader, ttl)
}

// sampleQuestions provides a minimal bank; configure questions.file or Postgres in production.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, Correct: 1},
		{ID: 2, Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, Correct: 1},
		{ID: 3, Text: "What is the capital of Japan?", Options: []string{"Kyoto", "Osaka", "Tokyo", "Nagoya"}, Correct: 2},
	}
}
