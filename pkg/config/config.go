package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	AuthProvider            string
	FirebaseCredentialsPath string
	JWTSecret               string
	TokenTTL                time.Duration
	PostgresUrl             string
	MongoURI                string
	MongoDatabase           string
	RedisAddr               string
	KafkaBrokers            []string
	KafkaTopic              string
	MetricsPort             string
	ToggleLockTTL           time.Duration
	// ToggleRate is the sustained toggles per second allowed per actor, 0 disables
	ToggleRate  float64
	ToggleBurst int
}

// Load reads .env when present, then the process environment
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		AuthProvider:            getEnv("AUTH_PROVIDER", "jwt"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		TokenTTL:                getDuration("TOKEN_TTL", 72*time.Hour),
		PostgresUrl:             getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		KafkaBrokers:            getList("KAFKA_BROKERS"),
		KafkaTopic:              getEnv("KAFKA_TOPIC", "engagement-notifications"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		ToggleLockTTL:           getDuration("TOGGLE_LOCK_TTL", 300*time.Millisecond),
		ToggleRate:              getFloat("TOGGLE_RATE", 5),
		ToggleBurst:             int(getFloat("TOGGLE_BURST", 10)),
	}
}

// developmentJWTSecret signs local tokens when JWT_SECRET is unset in development
const developmentJWTSecret = "local-development-only"

// ErrMissingJWTSecret stops a non-development server from signing with a guessable key
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set outside development")

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Validate rejects settings the server must not start with. In development
// an unset JWT secret falls back to a local-only key.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return ErrMissingJWTSecret
		}
		c.JWTSecret = developmentJWTSecret
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f >= 0 {
		return f
	}
	return defaultValue
}

func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
