package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/db"
	"github.com/monocle-dev/taskflow/internal/auth"
	"github.com/monocle-dev/taskflow/internal/realtime"
	"github.com/monocle-dev/taskflow/internal/router"
	"github.com/spf13/cobra"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(db.DB) }()

		if autoMigrate {
			if err := db.MigrateDatabase(db.DB); err != nil {
				return err
			}
		}

		tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}

		gin.SetMode(cfg.HTTP.GinMode)

		origins := cfg.Origins()

		r := router.NewRouter(router.Deps{
			DB:           db.DB,
			Log:          log,
			Tokens:       tokens,
			Hub:          realtime.NewHub(origins, log),
			Origins:      origins,
			CookieDomain: cfg.HTTP.CookieDomain,
		})

		server := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("http server listening", "address", server.Addr, "driver", cfg.Database.Driver)
			errCh <- server.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "run database migrations before serving")
}
