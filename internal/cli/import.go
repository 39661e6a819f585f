package cli

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"trivia-service/internal/infra/memory"
	pgstore "trivia-service/internal/infra/postgres"
	rediscache "trivia-service/internal/infra/redis"
)

// NewImportCmd loads a JSON question file into Postgres.
func NewImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <questions.json>",
		Short: "Import a JSON question bank into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			questions, err := memory.NewFileQuestionLoader(args[0]).LoadQuestions(ctx)
			if err != nil {
				return err
			}

			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrateDB(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			n, err := pgstore.NewImporter(db).Import(ctx, questions)
			if err != nil {
				return err
			}
			log.Info().Int("questions", n).Str("file", args[0]).Msg("question bank imported")

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				if err := rediscache.NewQuestionRepository(client, nil, 0).Invalidate(ctx); err != nil {
					log.Warn().Err(err).Msg("failed to invalidate cached question bank")
				}
			}
			return nil
		},
	}
}
