package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/account"
	api "github.com/collegify/collegify/internal/api/http"
	auth "github.com/collegify/collegify/internal/auth/middleware"
	"github.com/collegify/collegify/internal/college"
	"github.com/collegify/collegify/internal/quiz"
	"github.com/collegify/collegify/internal/storage"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, driver, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer h.Close()

	bs, err := storage.NewFSStore(cfg.BlobBasePath, cfg.PublicAssetPrefix)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "your-secret-key" {
		logger.Warn("JWT_SECRET is the built-in default; set it outside development")
	}

	results := quiz.NewSQLResultStore(h, driver, nil)
	router := api.NewRouter(api.Deps{
		DB:          h,
		Driver:      driver,
		Auth:        auth.NewAuthService(cfg.JWTSecret, cfg.TokenTTL),
		Accounts:    account.NewService(h, driver, account.DefaultCost),
		Colleges:    college.NewSQLStore(h, driver),
		Results:     results,
		Sessions:    quiz.NewSessionManager(results, quiz.WithLogger(logger.Named("quiz"))),
		Blobs:       bs,
		CORSOrigins: cfg.CORSOrigins,
		Log:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("db", string(driver)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
