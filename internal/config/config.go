package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"problem-bank"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	Grading     Grading
	Evaluator   Evaluator
	Leaderboard Leaderboard
	CORS        CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret        string `env:"JWT_SECRET,notEmpty"`
	RenderHMACSecret string `env:"RENDER_HMAC_SECRET,notEmpty"`
}

// Grading groups lifecycle defaults for questions and rewards.
type Grading struct {
	DefaultMaxSubmissions int           `env:"DEFAULT_MAX_SUBMISSIONS" envDefault:"4"`
	DefaultTokenValue     int           `env:"DEFAULT_TOKEN_VALUE" envDefault:"0"`
	RenderCacheTTL        time.Duration `env:"RENDER_CACHE_TTL" envDefault:"5m"`
}

// Evaluator configures the external code-evaluation service.
type Evaluator struct {
	URL         string        `env:"EVALUATOR_URL"`
	APIKey      string        `env:"EVALUATOR_API_KEY"`
	CallbackKey string        `env:"EVALUATOR_CALLBACK_KEY"`
	HTTPTimeout time.Duration `env:"EVALUATOR_HTTP_TIMEOUT" envDefault:"6s"`
	QueueSize   int           `env:"EVALUATOR_QUEUE_SIZE" envDefault:"64"`
}

// Leaderboard governs the token leaderboard.
type Leaderboard struct {
	TopN      int    `env:"LEADERBOARD_TOP" envDefault:"50"`
	KeyPrefix string `env:"LEADERBOARD_KEY_PREFIX" envDefault:"lb"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
