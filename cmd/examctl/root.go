package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/examprep-api/internal/config"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	redisRepo "github.com/yourusername/examprep-api/internal/repository/redis"
	"github.com/yourusername/examprep-api/pkg/database"
)

var rootCmd = &cobra.Command{
	Use:           "examctl",
	Short:         "Operations tool for the exam practice API",
	Long:          "examctl runs migrations, previews question selection and maintains practice sessions.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (overrides CONFIG_PATH env var)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(expireCmd)
}

// loadConfig читает конфигурацию: флаг --config, затем CONFIG_PATH, затем путь по умолчанию
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.yaml"
	}
	return config.Load(path)
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), logger.Warn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// openCache возвращает кеш или nil, если Redis недоступен
func openCache(cfg *config.Config) repository.CacheRepository {
	client, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("[examctl] Redis unavailable, cache disabled: %v", err)
		return nil
	}
	cache, err := redisRepo.NewCacheRepo(client, cfg.Redis.KeyPrefix)
	if err != nil {
		log.Printf("[examctl] Cache init failed: %v", err)
		client.Close()
		return nil
	}
	return cache
}
