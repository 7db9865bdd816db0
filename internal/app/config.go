package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	LogLevel        string
	LogFormat       string
	PolicyPath      string
	StatusSource    string // "redis" or "embedded"
	RedisAddr       string
	RedisPassword   string
	DataDir         string
	MinFreeBytes    int64
	TargetFreeBytes int64 // 0 = derived from MinFreeBytes
	ReclaimInterval time.Duration
	DeletesPerMin   int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DB", "seedvault"),
		MongoCollection: getEnv("MONGO_COLLECTION", "meta"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		PolicyPath:      getEnv("POLICY_PATH", "policy.yaml"),
		StatusSource:    strings.ToLower(getEnv("STATUS_SOURCE", "redis")),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		DataDir:         getEnv("DATA_DIR", "data"),
		MinFreeBytes:    getEnvInt64("RECLAIM_MIN_FREE_BYTES", 10<<30),
		TargetFreeBytes: getEnvInt64("RECLAIM_TARGET_FREE_BYTES", 0),
		ReclaimInterval: getEnvDuration("RECLAIM_INTERVAL", 5*time.Minute),
		DeletesPerMin:   int(getEnvInt64("RECLAIM_DELETES_PER_MIN", 4)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
