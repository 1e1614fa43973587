package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env             string
	LogLevel        string
	HTTPAddr        string
	CorsOrigin      string
	JWTSecret       string
	JWTTTL          time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxRequestBody  int64

	PostgresURL    string
	MigrationDir   string
	JournalBuffer  int
	EventsCacheTTL time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	NATSURL        string

	WorldTickRate    int
	WorldMapFile     string
	WorldSeed        int64
	SnapshotEvery    int
	OperatorPassword string

	DialogFile     string
	DialogAPIURL   string
	DialogAPIKey   string
	DialogModel    string
	DialogTimeout  time.Duration
	DialogCacheTTL time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", ""),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		CorsOrigin:      getEnv("CORS_ORIGIN", "*"),
		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		JWTTTL:          getDuration("JWT_TTL", 12*time.Hour),
		ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 20*time.Second),
		MaxRequestBody:  getInt64("MAX_REQUEST_BODY_BYTES", 1<<20),

		PostgresURL:    getEnv("POSTGRES_URL", ""),
		MigrationDir:   getEnv("MIGRATION_DIR", "migrations"),
		JournalBuffer:  getInt("JOURNAL_BUFFER", 1024),
		EventsCacheTTL: getDuration("EVENTS_CACHE_TTL", 2*time.Second),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getInt("REDIS_DB", 0),
		NATSURL:        getEnv("NATS_URL", "nats://localhost:4222"),

		WorldTickRate:    getInt("WORLD_TICK_RATE", 60),
		WorldMapFile:     getEnv("WORLD_MAP_FILE", "data/maps/meadow.csv"),
		WorldSeed:        getInt64("WORLD_SEED", 0),
		SnapshotEvery:    getInt("SNAPSHOT_EVERY", 1),
		OperatorPassword: getEnv("OPERATOR_PASSWORD", ""),

		DialogFile:     getEnv("DIALOG_FILE", "data/dialog/wizard.json"),
		DialogAPIURL:   getEnv("DIALOG_API_URL", ""),
		DialogAPIKey:   getEnv("DIALOG_API_KEY", ""),
		DialogModel:    getEnv("DIALOG_MODEL", ""),
		DialogTimeout:  getDuration("DIALOG_TIMEOUT", 10*time.Second),
		DialogCacheTTL: getDuration("DIALOG_CACHE_TTL", 24*time.Hour),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate is rerun after command line flags are applied.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.WorldTickRate <= 0 {
		return fmt.Errorf("WORLD_TICK_RATE must be > 0")
	}
	if c.SnapshotEvery <= 0 {
		return fmt.Errorf("SNAPSHOT_EVERY must be > 0")
	}
	if c.WorldMapFile == "" {
		return fmt.Errorf("WORLD_MAP_FILE must not be empty")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
