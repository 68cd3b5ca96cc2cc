package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	Port        string
	JWTSecret   string
	GraceWindow time.Duration
	Retention   time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "edulearn"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		GraceWindow: time.Duration(getEnvInt("GRACE_WINDOW_SEC", 10)) * time.Second,
		Retention:   time.Duration(getEnvInt("RETENTION_MIN", 15)) * time.Minute,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
