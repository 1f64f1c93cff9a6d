package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	APIBaseURL         string
	APIToken           string
	UserID             string
	PushURL            string
	PageSize           int
	RESTTimeout        time.Duration
	PushReconnectDelay time.Duration
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaNotifyTopic   string
	RedisURL           string
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", "127.0.0.1:8090"),
		APIBaseURL:       strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000/api"), "/"),
		APIToken:         os.Getenv("API_TOKEN"),
		UserID:           strings.TrimSpace(os.Getenv("USER_ID")),
		PushURL:          getEnv("PUSH_URL", "ws://localhost:5000/socket"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "taskchat"),
		KafkaNotifyTopic: getEnv("KAFKA_NOTIFY_TOPIC", "chat.notifications"),
		RedisURL:         os.Getenv("REDIS_URL"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "chat-images"),
	}
	for _, raw := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if broker := strings.TrimSpace(raw); broker != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
		}
	}

	pageSize, err := parseIntEnv("PAGE_SIZE", 20)
	if err != nil {
		return Config{}, err
	}
	if pageSize <= 0 {
		return Config{}, fmt.Errorf("PAGE_SIZE must be positive, got %d", pageSize)
	}
	cfg.PageSize = pageSize

	timeout, err := parseDurationEnv("REST_TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RESTTimeout = timeout

	reconnect, err := parseDurationEnv("PUSH_RECONNECT_DELAY", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.PushReconnectDelay = reconnect

	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	if cfg.UserID == "" {
		return Config{}, fmt.Errorf("USER_ID is required")
	}
	return cfg, nil
}

// S3Enabled reports whether image uploads should go through object storage.
func (c Config) S3Enabled() bool {
	return c.S3Endpoint != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
