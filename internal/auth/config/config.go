package config

import (
	"time"

	"github.com/aptwise/aptwise/internal/pkg/env"
)

type Config struct {
	HTTP     httpConfig
	JWT      jwtConfig
	DB       dbConfig
	Redis    redisConfig
	LinkedIn linkedinConfig
	Frontend frontendConfig
	Debug    bool
}

type httpConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type jwtConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type dbConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type redisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	StateTTL time.Duration
}

type linkedinConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type frontendConfig struct {
	CallbackURL string
}

func FromEnv() Config {
	return Config{
		HTTP: httpConfig{
			ListenAddr:      env.String("HTTP_LISTEN_ADDR", ":8080"),
			ReadTimeout:     env.Duration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.Duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     env.Duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: env.Duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		JWT: jwtConfig{
			Secret: env.RequireString("JWT_SECRET"),
			Issuer: env.String("JWT_ISSUER", "aptwise"),
			TTL:    env.Duration("JWT_TTL", 24*time.Hour),
		},
		DB: dbConfig{
			Host:     env.String("DB_HOST", "localhost"),
			Port:     env.String("DB_PORT", "5432"),
			User:     env.String("DB_USER", "aptwise"),
			Password: env.String("DB_PASSWORD", ""),
			Name:     env.String("DB_NAME", "aptwise"),
		},
		Redis: redisConfig{
			Host:     env.String("REDIS_HOST", "localhost"),
			Port:     env.String("REDIS_PORT", "6379"),
			Password: env.String("REDIS_PASSWORD", ""),
			DB:       env.Int("REDIS_DB", 0),
			StateTTL: env.Duration("OAUTH_STATE_TTL", 10*time.Minute),
		},
		LinkedIn: linkedinConfig{
			ClientID:     env.RequireString("LINKEDIN_CLIENT_ID"),
			ClientSecret: env.RequireString("LINKEDIN_CLIENT_SECRET"),
			RedirectURL:  env.RequireString("LINKEDIN_REDIRECT_URL"),
		},
		Frontend: frontendConfig{
			CallbackURL: env.String("FRONTEND_CALLBACK_URL", "http://localhost:5174/auth/linkedin/callback"),
		},
		Debug: env.Bool("DEBUG_ENDPOINTS", false),
	}
}
