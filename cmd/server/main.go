package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/PulseNet/internal/api"
	"github.com/Skufu/PulseNet/internal/auth"
	"github.com/Skufu/PulseNet/internal/config"
	"github.com/Skufu/PulseNet/internal/draftstore"
	"github.com/Skufu/PulseNet/internal/logging"
	"github.com/Skufu/PulseNet/internal/web"
)

var GitSHA = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(ctx, GitSHA).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context, gitSHA string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pulsenet",
		Short:        "PulseNet clinical intake console",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(ctx)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "run the console web server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServer(ctx)
			},
		},
		newVersionCmd(gitSHA),
	)
	return cmd
}

func newVersionCmd(gitSHA string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitSHA)
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, closer := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDev(),
		File:   cfg.LogFile,
	})
	defer closer.Close()

	gin.SetMode(cfg.GinMode)

	router, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	logger.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Str("drafts", cfg.DraftStore).
		Str("auth", cfg.AuthMode).
		Str("git", GitSHA).
		Msg("server listening")

	select {
	case err := <-serveErr:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}
	waitForShutdown(server, logger)
	return nil
}

// buildApp wires the draft store, auth gate and backend client into the
// router. cleanup closes whatever connections were opened.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	drafts, closeDrafts, err := draftstore.Open(ctx, draftstore.Config{
		Kind:        cfg.DraftStore,
		FilePath:    cfg.DraftFile,
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		RedisURL:    cfg.RedisURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("draft store: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret)
	if err != nil {
		closeDrafts()
		return nil, nil, err
	}
	gate := auth.NewGate(newProvider(cfg, verifier), verifier, auth.WithGateLogger(logger))

	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, api.WithLogger(logger))

	deps := web.Deps{
		Gate:            gate,
		Drafts:          drafts,
		Analyzer:        client,
		Records:         client,
		Replier:         client,
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		CookieSecure:    cfg.CookieSecure,
		DefaultLanguage: cfg.DefaultLanguage,
	}
	if hc, ok := drafts.(draftstore.HealthChecker); ok {
		deps.Health = hc
	}

	router, detach, err := web.NewRouter(deps)
	if err != nil {
		closeDrafts()
		return nil, nil, err
	}
	return router, func() {
		detach()
		closeDrafts()
	}, nil
}

func newProvider(cfg *config.Config, v *auth.Verifier) auth.Provider {
	if cfg.AuthMode == "supabase" {
		return auth.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, &http.Client{Timeout: cfg.APITimeout})
	}
	return auth.NewLocalProvider(v, auth.WithTokenTTL(cfg.SessionTTL))
}

func waitForShutdown(server *http.Server, logger zerolog.Logger) {
	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
