package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Practice  PracticeConfig  `mapstructure:"practice"`
	Selection SelectionConfig `mapstructure:"selection"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Email     EmailConfig     `mapstructure:"email"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: "single", "sentinel" или "cluster". По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: список адресов (хост:порт). Для 'single' используется первый адрес.
	Addrs []string `mapstructure:"addrs"`

	// Addr: адрес для режима 'single', если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: имя мастер-сервера (только для "sentinel")
	MasterName string `mapstructure:"master_name"`

	// KeyPrefix: префикс всех ключей кеша
	KeyPrefix string `mapstructure:"key_prefix"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// AuthConfig содержит параметры проверки access token внешнего сервиса аутентификации
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Audience  string        `mapstructure:"audience"`
	Issuer    string        `mapstructure:"issuer"`
	Leeway    time.Duration `mapstructure:"leeway"`
}

// PracticeConfig содержит настройки практических сессий
type PracticeConfig struct {
	DefaultQuestionCount int           `mapstructure:"default_question_count"`
	MaxQuestionCount     int           `mapstructure:"max_question_count"`
	SecondsPerQuestion   int           `mapstructure:"seconds_per_question"`
	MaxTimeLimitMinutes  int           `mapstructure:"max_time_limit_minutes"`
	PassingScore         int           `mapstructure:"passing_score"`
	ExpiryCheckInterval  time.Duration `mapstructure:"expiry_check_interval"`
}

// SelectionConfig содержит настройки подборщика вопросов
type SelectionConfig struct {
	// GlobalStatsCacheTTL: время жизни кеша глобальной статистики. 0 отключает кеш.
	GlobalStatsCacheTTL time.Duration `mapstructure:"global_stats_cache_ttl"`
	DomainsCacheTTL     time.Duration `mapstructure:"domains_cache_ttl"`
}

// StorageConfig содержит настройки хранилища изображений
type StorageConfig struct {
	Provider       string `mapstructure:"provider"` // local или minio
	LocalPath      string `mapstructure:"local_path"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
	MaxImageBytes  int64  `mapstructure:"max_image_bytes"`
}

// EmailConfig содержит настройки отправки писем
type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// RateLimitConfig содержит лимиты запросов в минуту на пользователя
type RateLimitConfig struct {
	SessionStartPerMinute int `mapstructure:"session_start_per_minute"`
	AnswerPerMinute       int `mapstructure:"answer_per_minute"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")
	vip.SetDefault("redis.key_prefix", "examprep")

	vip.SetDefault("auth.leeway", 30*time.Second)

	vip.SetDefault("practice.default_question_count", 20)
	vip.SetDefault("practice.max_question_count", 100)
	vip.SetDefault("practice.seconds_per_question", 90)
	vip.SetDefault("practice.max_time_limit_minutes", 240)
	vip.SetDefault("practice.passing_score", 825)
	vip.SetDefault("practice.expiry_check_interval", time.Minute)

	vip.SetDefault("selection.global_stats_cache_ttl", 0)
	vip.SetDefault("selection.domains_cache_ttl", 10*time.Minute)

	vip.SetDefault("storage.provider", "local")
	vip.SetDefault("storage.local_path", "./uploads")
	vip.SetDefault("storage.public_base_url", "/uploads")
	vip.SetDefault("storage.minio_bucket", "question-images")
	vip.SetDefault("storage.max_image_bytes", 5<<20)

	vip.SetDefault("email.from", "ExamPrep <noreply@examprep.local>")

	vip.SetDefault("rate_limit.session_start_per_minute", 10)
	vip.SetDefault("rate_limit.answer_per_minute", 120)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	setDefaults(vip)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	vip.BindEnv("auth.audience", "AUTH_AUDIENCE")
	vip.BindEnv("auth.issuer", "AUTH_ISSUER")

	vip.BindEnv("selection.global_stats_cache_ttl", "SELECTION_GLOBAL_STATS_CACHE_TTL")

	vip.BindEnv("storage.provider", "STORAGE_PROVIDER")
	vip.BindEnv("storage.minio_endpoint", "STORAGE_MINIO_ENDPOINT")
	vip.BindEnv("storage.minio_access_key", "STORAGE_MINIO_ACCESS_KEY")
	vip.BindEnv("storage.minio_secret_key", "STORAGE_MINIO_SECRET_KEY")
	vip.BindEnv("storage.minio_bucket", "STORAGE_MINIO_BUCKET")

	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	// 3. Файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database: %s@%s:%s/%s (sslmode=%s)", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		log.Printf("Redis: mode=%s addr=%s", cfg.Redis.Mode, cfg.Redis.Addr)
		log.Printf("Auth issuer=%q audience=%q secret set: %t", cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.JWTSecret != "")
		log.Printf("Practice: default=%d max=%d passing=%d", cfg.Practice.DefaultQuestionCount, cfg.Practice.MaxQuestionCount, cfg.Practice.PassingScore)
		log.Printf("Storage provider: %s, email enabled: %t", cfg.Storage.Provider, cfg.Email.Enabled)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// 5. Проверка обязательных параметров
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required in config (check AUTH_JWT_SECRET env var)")
	}
	if c.Practice.DefaultQuestionCount < 1 || c.Practice.MaxQuestionCount < c.Practice.DefaultQuestionCount {
		return fmt.Errorf("practice question counts are inconsistent: default=%d max=%d",
			c.Practice.DefaultQuestionCount, c.Practice.MaxQuestionCount)
	}
	if c.Practice.SecondsPerQuestion < 1 {
		return fmt.Errorf("practice.seconds_per_question must be positive")
	}
	if c.Storage.Provider != "local" && c.Storage.Provider != "minio" {
		return fmt.Errorf("unknown storage provider %q (expected local or minio)", c.Storage.Provider)
	}
	return nil
}
