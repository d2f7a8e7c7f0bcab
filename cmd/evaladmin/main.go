package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/database"
	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "evaladmin",
		Short:         "Maintenance tasks for the lecturer evaluation database",
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("database-url", "", "Postgres DSN (or set GEMA_DATABASE_URL)")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd(), seedCatalogCmd())
	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the evaluation tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viperForCmd(cmd)
			logger := newLogger(v)

			db, err := database.ConnectPostgres(cmd.Context(), v.GetString("database-url"), database.PoolOptions{MaxOpenConns: 2})
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Msg("evaluation schema migrated")
			return nil
		},
	}
}

func seedCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Upsert evaluation categories and questions from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viperForCmd(cmd)
			logger := newLogger(v)

			db, err := database.ConnectPostgres(cmd.Context(), v.GetString("database-url"), database.PoolOptions{MaxOpenConns: 2})
			if err != nil {
				return err
			}

			var cache *redis.Client
			if url := v.GetString("redis-url"); url != "" {
				if cache, err = database.ConnectRedis(cmd.Context(), url); err != nil {
					return err
				}
				defer cache.Close()
			}

			result, err := seedCatalog(cmd.Context(), db, cache, v.GetString("file"), logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories and %d questions\n", result.Categories, result.Questions)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Catalog JSON file with categories and questions (required)")
	cmd.Flags().String("redis-url", "", "Redis URL whose catalog cache should be invalidated (or set GEMA_REDIS_URL)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// seedCatalog imports the catalog file through the same sanitising path as the HTTP seeder.
func seedCatalog(ctx context.Context, db *gorm.DB, cache *redis.Client, path string, logger zerolog.Logger) (dto.CatalogSeedResponse, error) {
	payload, err := readCatalogFile(path)
	if err != nil {
		return dto.CatalogSeedResponse{}, err
	}

	catalogRepo := repository.NewEvaluationCatalogRepository(db)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	catalog := service.NewCatalogService(catalogRepo, cache, 0, logger)

	seeder := service.NewSeedService(catalogRepo, catalog, activity, true, "", logger)
	return seeder.ImportCatalog(ctx, payload)
}

func readCatalogFile(path string) (dto.CatalogSeedRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dto.CatalogSeedRequest{}, fmt.Errorf("read catalog file: %w", err)
	}

	var payload dto.CatalogSeedRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		return dto.CatalogSeedRequest{}, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	if len(payload.Categories) == 0 && len(payload.Questions) == 0 {
		return dto.CatalogSeedRequest{}, fmt.Errorf("catalog file %s is empty", path)
	}
	return payload, nil
}

// viperForCmd binds a command's flags and GEMA_ environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())

	v.SetEnvPrefix("GEMA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newLogger(v *viper.Viper) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("log-level")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
