package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	JWTSecret        string
	JWTMaxAgeMinutes int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	ClientOrigin   string
	AllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	OTLPEndpoint string
	ImagesDir    string

	AuthRatePerMinute int
}

func Load() Config {
	// a missing .env is fine, real deployments use the environment
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	clientOrigin := getEnv("CLIENT_ORIGIN", "http://localhost:3000")

	return Config{
		Env:   env,
		Port:  getEnvInt("PORT", 8000),
		DBURL: getEnv("DATABASE_URL", buildDBURL()),

		Neo4jURI:      getEnv("NEO4J_URI", "neo4j://127.0.0.1:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "neo4j"),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", ""),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTMaxAgeMinutes: getEnvInt("JWT_MAXAGE", 60),

		GoogleClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_OAUTH_REDIRECT_URL", "http://localhost:8000/api/sessions/oauth/google"),

		ClientOrigin:   clientOrigin,
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{clientOrigin}),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ImagesDir:    getEnv("IMAGES_DIR", "public"),

		AuthRatePerMinute: getEnvInt("AUTH_RATE_PER_MINUTE", 20),
	}
}

// Validate reports settings the API cannot run without.
func (c Config) Validate() error {
	if c.JWTSecret == "" && c.Env != "dev" && c.Env != "test" {
		return errors.New("JWT_SECRET must be set")
	}

	if c.JWTMaxAgeMinutes <= 0 {
		return fmt.Errorf("JWT_MAXAGE must be positive, got %d", c.JWTMaxAgeMinutes)
	}

	return nil
}

// TokenTTL is the lifetime of issued tokens and of the token cookie.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTMaxAgeMinutes) * time.Minute
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "familytree")
	pass := getEnv("DB_PASSWORD", "familytree")
	name := getEnv("DB_NAME", "familytree")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// WithTimeoutFrom derives the deadline from the request context so client
// disconnects cancel store calls too.
func WithTimeoutFrom(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	if len(out) == 0 {
		return fallback
	}
	return out
}
