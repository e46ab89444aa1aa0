package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Controller ControllerConfig
	Influx     InfluxConfig
	Sync       SyncConfig
	Poll       PollConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	SMTP       SMTPConfig
	Alert      AlertConfig
}

type ControllerConfig struct {
	BaseURL        string
	Username       string
	Password       string
	Hostname       string
	UTCOffsetMin   int
	RequestTimeout time.Duration
}

type InfluxConfig struct {
	URL      string
	Database string
	Token    string
	Timeout  time.Duration
}

type SyncConfig struct {
	WindowDays        int
	ChunkDays         int
	QueryChunkDays    int
	QueryLookbackDays int
	BackfillDays      int
	BatchSize         int
	BatchDelay        time.Duration
	ChunkDelay        time.Duration
	ForceFullSync     bool
}

type PollConfig struct {
	Interval time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicStatus   string
	NumPartitions int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type AlertConfig struct {
	Rules  string
	MaxLag time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Controller: ControllerConfig{
			BaseURL:        getEnv("CONTROLLER_URL", "http://localhost:8080"),
			Username:       getEnv("CONTROLLER_USER", ""),
			Password:       getEnv("CONTROLLER_PASSWORD", ""),
			Hostname:       getEnv("CONTROLLER_HOSTNAME", "diva"),
			UTCOffsetMin:   getEnvAsInt("CONTROLLER_UTC_OFFSET_MIN", 0),
			RequestTimeout: getEnvAsDuration("CONTROLLER_TIMEOUT", 30*time.Second),
		},
		Influx: InfluxConfig{
			URL:      getEnv("INFLUX_URL", "http://localhost:8181"),
			Database: getEnv("INFLUX_DATABASE", "aquarium"),
			Token:    getEnv("INFLUX_TOKEN", ""),
			Timeout:  getEnvAsDuration("INFLUX_TIMEOUT", 60*time.Second),
		},
		Sync: SyncConfig{
			WindowDays:        getEnvAsInt("SYNC_WINDOW_DAYS", 60),
			ChunkDays:         getEnvAsInt("SYNC_CHUNK_DAYS", 3),
			QueryChunkDays:    getEnvAsInt("SYNC_QUERY_CHUNK_DAYS", 7),
			QueryLookbackDays: getEnvAsInt("SYNC_QUERY_LOOKBACK_DAYS", 90),
			BackfillDays:      getEnvAsInt("SYNC_BACKFILL_DAYS", 1),
			BatchSize:         getEnvAsInt("SYNC_BATCH_SIZE", 500),
			BatchDelay:        getEnvAsDuration("SYNC_BATCH_DELAY", 100*time.Millisecond),
			ChunkDelay:        getEnvAsDuration("SYNC_CHUNK_DELAY", 2*time.Second),
			ForceFullSync:     getEnvAsBool("SYNC_FORCE_FULL", false),
		},
		Poll: PollConfig{
			Interval: getEnvAsDuration("POLL_INTERVAL", 60*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicStatus:   getEnv("KAFKA_TOPIC_STATUS", "aquarium.status"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 1),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "aidivalogger@example.com"),
			To:       getEnv("SMTP_TO", "admin@example.com"),
		},
		Alert: AlertConfig{
			Rules:  getEnv("ALERT_RULES", ""),
			MaxLag: getEnvAsDuration("ALERT_MAX_LAG", 6*time.Hour),
		},
	}

	if err := config.Sync.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (s SyncConfig) validate() error {
	if s.ChunkDays <= 0 || s.WindowDays <= 0 {
		return fmt.Errorf("sync window and chunk sizes must be positive (window=%d chunk=%d)", s.WindowDays, s.ChunkDays)
	}
	if s.QueryChunkDays <= 0 || s.QueryLookbackDays <= 0 {
		return fmt.Errorf("query chunk and lookback sizes must be positive (chunk=%d lookback=%d)", s.QueryChunkDays, s.QueryLookbackDays)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive (got %d)", s.BatchSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
