package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver        string // "postgres" or "sqlite"
	PostgresDSN   string
	SQLiteDSN     string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	AutoMigrate   bool
	MigrationsDir string // empty means the embedded migrations
}

// RedisConfig is optional. An empty Addr switches the rate limiter to its
// in-process backend and disables the token cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
	// GroupID is the consumer group of the activity-tail command.
	GroupID string
}

type TopicConfig struct {
	EventCreated       string
	EventUpdated       string
	EventDeleted       string
	AttendeeRegistered string
	AttendeeRemoved    string
}

// All returns every configured topic, used to bootstrap them on startup.
func (t TopicConfig) All() []string {
	return []string{t.EventCreated, t.EventUpdated, t.EventDeleted, t.AttendeeRegistered, t.AttendeeRemoved}
}

type RateLimitConfig struct {
	PerMinute         int
	TrustedProxyCIDRs []string
}

type AuthConfig struct {
	BcryptCost    int
	TokenCacheTTL time.Duration
}

type LogConfig struct {
	Dir         string
	FileEnabled bool
}

func Load() *Config {
	prefix := getEnv("KAFKA_TOPIC_PREFIX", "events")

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8000"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			SQLiteDSN:     getEnv("SQLITE_DSN", "file:events.db?cache=shared"),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:   getEnvBool("DB_AUTO_MIGRATE", true),
			MigrationsDir: getEnv("MIGRATIONS_DIR", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			GroupID: getEnv("KAFKA_GROUP_ID", "ms-events-activity-tail"),
			Topics: TopicConfig{
				EventCreated:       prefix + ".event.created",
				EventUpdated:       prefix + ".event.updated",
				EventDeleted:       prefix + ".event.deleted",
				AttendeeRegistered: prefix + ".attendee.registered",
				AttendeeRemoved:    prefix + ".attendee.removed",
			},
		},
		RateLimit: RateLimitConfig{
			PerMinute:         getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
			TrustedProxyCIDRs: getEnvList("TRUSTED_PROXY_CIDRS", nil),
		},
		Auth: AuthConfig{
			BcryptCost:    getEnvInt("BCRYPT_COST", 12),
			TokenCacheTTL: time.Duration(getEnvInt("TOKEN_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Log: LogConfig{
			Dir:         getEnv("LOG_DIR", "logs"),
			FileEnabled: getEnvBool("LOG_FILE_ENABLED", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
