package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aptwise/aptwise/internal/auth/config"
	"github.com/aptwise/aptwise/internal/auth/linkedin"
	"github.com/aptwise/aptwise/internal/auth/password"
	"github.com/aptwise/aptwise/internal/auth/rest"
	"github.com/aptwise/aptwise/internal/auth/service"
	"github.com/aptwise/aptwise/internal/auth/state"
	"github.com/aptwise/aptwise/internal/auth/store"
	"github.com/aptwise/aptwise/internal/auth/token"
	"github.com/aptwise/aptwise/internal/pkg/middleware"
	"github.com/aptwise/aptwise/internal/pkg/router"
)

const sessionCookie = "session"

func run(ctx context.Context) error {
	slog.Info("starting auth service")

	cfg := config.FromEnv()

	db, err := store.NewPostgresDB(store.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DB:       cfg.DB.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	states := state.NewRedis(state.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.StateTTL,
	})
	defer states.Close()

	tokens := token.NewIssuer(token.IssuerConfig{
		Secret: token.NewSecretString(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})

	srv := service.NewAuth(
		service.WithStore(store.NewPostgresStore(db)),
		service.WithHasher(password.NewArgon2()),
		service.WithTokens(tokens),
		service.WithLinkedIn(linkedin.NewClient(linkedin.Config{
			ClientID:     cfg.LinkedIn.ClientID,
			ClientSecret: cfg.LinkedIn.ClientSecret,
			RedirectURL:  cfg.LinkedIn.RedirectURL,
		})),
		service.WithStates(states),
	)

	rt := router.New()
	rt.Use(middleware.Log(), middleware.Recover())

	rt.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rt.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	var debug *rest.DebugInfo
	if cfg.Debug {
		debug = &rest.DebugInfo{
			ClientIDConfigured:     cfg.LinkedIn.ClientID != "",
			ClientSecretConfigured: cfg.LinkedIn.ClientSecret != "",
			RedirectURL:            cfg.LinkedIn.RedirectURL,
		}
	}

	api := rest.NewAPI(srv, rest.Config{
		CookieName:          sessionCookie,
		CookieTTL:           tokens.TTL(),
		FrontendCallbackURL: cfg.Frontend.CallbackURL,
		Session:             middleware.Session(sessionCookie, tokens),
		Debug:               debug,
	})
	rt.Handle("/auth/", http.StripPrefix("/auth", api))

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler:      rt,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("auth service terminated with error", "error", err)
		os.Exit(1)
	}
}
