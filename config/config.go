package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"triviaroom/services"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	// DriverMemory keeps everything in process; state is lost on restart.
	DriverMemory = "memory"
)

// HTTP configures the listener. CORS_ORIGINS is a comma-separated list.
type HTTP struct {
	Port         string
	BindAddress  string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns the address ListenAndServe binds to.
func (h HTTP) Addr() string {
	return h.BindAddress + ":" + h.Port
}

// DB selects the store. SQLitePath is only read for the sqlite driver.
type DB struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// Redis configures the room snapshot cache.
type Redis struct {
	Enabled     bool
	Host        string
	Port        string
	Password    string
	SnapshotTTL time.Duration // bounds how stale a cached snapshot can be
}

type Log struct {
	Level  string
	Format string
}

// Config is everything main needs to wire the server.
type Config struct {
	HTTP          HTTP
	DB            DB
	Redis         Redis
	Log           Log
	Game          services.Rules
	SeedQuestions bool
}

// Load reads envFile when given, otherwise an optional .env, and then builds the
// configuration from the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	// Game rules start from the defaults and take any override set in the environment
	rules := services.DefaultRules()
	rules.NameMinLength = getEnvInt("NAME_MIN_LENGTH", rules.NameMinLength)
	rules.NameMaxLength = getEnvInt("NAME_MAX_LENGTH", rules.NameMaxLength)
	rules.DefaultMaxPlayers = getEnvInt("DEFAULT_MAX_PLAYERS", rules.DefaultMaxPlayers)
	rules.MaxPlayersLimit = getEnvInt("MAX_PLAYERS_LIMIT", rules.MaxPlayersLimit)
	rules.MinPlayers = getEnvInt("MIN_PLAYERS", rules.MinPlayers)
	rules.DefaultTimeLimit = getEnvInt("DEFAULT_TIME_LIMIT", rules.DefaultTimeLimit)
	rules.MinTimeLimit = getEnvInt("MIN_TIME_LIMIT", rules.MinTimeLimit)
	rules.MaxTimeLimit = getEnvInt("MAX_TIME_LIMIT", rules.MaxTimeLimit)
	rules.DefaultQuestionCount = getEnvInt("DEFAULT_QUESTION_COUNT", rules.DefaultQuestionCount)
	rules.MaxQuestionCount = getEnvInt("MAX_QUESTION_COUNT", rules.MaxQuestionCount)
	rules.DefaultGameMode = getEnv("DEFAULT_GAME_MODE", rules.DefaultGameMode)
	rules.BaseScore = getEnvInt("BASE_SCORE", rules.BaseScore)
	rules.TimeBonusMultiplier = getEnvFloat("TIME_BONUS_MULTIPLIER", rules.TimeBonusMultiplier)
	rules.CodeAttempts = getEnvInt("CODE_ATTEMPTS", rules.CodeAttempts)
	rules.RoomTTL = getEnvDuration("ROOM_TTL", rules.RoomTTL)
	rules.CleanupPeriod = getEnvInt("CLEANUP_PERIOD", rules.CleanupPeriod)

	cfg := &Config{
		HTTP: HTTP{
			Port:         getEnv("PORT", "8080"),
			BindAddress:  getEnv("BIND_ADDRESS", ""),
			CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "*")),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		DB: DB{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "triviaroom"),
			Password:   getEnv("DB_PASSWORD", "triviaroom"),
			Name:       getEnv("DB_NAME", "triviaroom"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "triviaroom.db"),
		},
		Redis: Redis{
			Enabled:     getEnvBool("REDIS_ENABLED", true),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			SnapshotTTL: getEnvDuration("SNAPSHOT_TTL", 5*time.Second),
		},
		Log: Log{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Game:          rules,
		SeedQuestions: getEnvBool("SEED_QUESTIONS", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects combinations the services cannot run with.
func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	g := c.Game
	if g.MinPlayers < 2 {
		return errors.New("MIN_PLAYERS must be at least 2")
	}
	if g.NameMinLength < 1 || g.NameMaxLength < g.NameMinLength {
		return errors.New("NAME_MIN_LENGTH and NAME_MAX_LENGTH are inconsistent")
	}
	if g.DefaultMaxPlayers < g.MinPlayers || g.DefaultMaxPlayers > g.MaxPlayersLimit {
		return errors.New("DEFAULT_MAX_PLAYERS must lie between MIN_PLAYERS and MAX_PLAYERS_LIMIT")
	}
	if g.DefaultTimeLimit < g.MinTimeLimit || g.DefaultTimeLimit > g.MaxTimeLimit {
		return errors.New("DEFAULT_TIME_LIMIT must lie between MIN_TIME_LIMIT and MAX_TIME_LIMIT")
	}
	if g.DefaultQuestionCount < 1 || g.DefaultQuestionCount > g.MaxQuestionCount {
		return errors.New("DEFAULT_QUESTION_COUNT must lie between 1 and MAX_QUESTION_COUNT")
	}
	if g.CodeAttempts < 1 {
		return errors.New("CODE_ATTEMPTS must be positive")
	}
	return nil
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if c.Log.Format == "text" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// getEnv returns the value of key, or defaultValue when it is unset or empty.
// The typed getters below also fall back when the value does not parse.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// splitList splits a comma-separated value and drops empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InitDB opens the postgres or sqlite database named by cfg.DB.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DB.SQLitePath)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port, cfg.DB.SSLMode)
		dialector = postgres.Open(dsn)
	}

	// SQL statements are only logged at debug level
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.Log.Level == "debug" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// InitRedis connects to redis and pings it once so a bad address fails at startup.
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
