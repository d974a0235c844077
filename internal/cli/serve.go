package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"billed/internal/auth"
	"billed/internal/backend"
	"billed/internal/config"
	"billed/internal/controller"
	apphttp "billed/internal/http"
	"billed/internal/log"
	"billed/internal/metrics"
	"billed/internal/middleware/ratelimit"
	"billed/internal/session"
)

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return wrapConfigError(err)
			}
			logger := SetupLogger(cfg.LogLevel)

			ctx, cancel := SignalContext(cmd.Context(), logger)
			defer cancel()
			return runServe(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	logger.Info("Starting billed", "version", Version, "backend", cfg.DataBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	var issuer *auth.Issuer
	if cfg.JWTSecret != "" {
		if issuer, err = auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL); err != nil {
			return err
		}
	} else {
		logger.Warn("JWT_SECRET not set, JSON API disabled")
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Store:          res.Store,
		Receipts:       res.Receipts,
		Issuer:         issuer,
		Sessions:       session.NewRegistry(cfg.SessionMax, cfg.SessionTTL),
		ModalWidth:     cfg.ModalWidth,
		UploadMaxBytes: cfg.UploadMaxSize,
		UpdateTimeout:  cfg.UpdateTimeout,
		RateLimit:      ratelimit.DefaultConfig(),
		ImageOrigin:    imageOrigin(cfg),
		Ready:          res.Ready,
		Observer:       stampSubmission,
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr, "public_url", cfg.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// leave room for bills still being saved
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.UpdateTimeout+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", log.FieldError, err)
			return err
		}
		logger.Info("Server stopped")
		return nil
	})

	return g.Wait()
}

// stampSubmission records when updates last settled, so an alert can fire
// when successes stop arriving.
var stampSubmission controller.SubmissionObserver = func(r controller.SubmissionResult) {
	metrics.SetLastSubmission(r.Err, time.Now())
}

// imageOrigin is the origin receipts are served from when another service
// stores them.
func imageOrigin(cfg *config.Config) string {
	if cfg.DataBackend != string(backend.APIBackend) {
		return ""
	}
	u, err := url.Parse(cfg.StoreAPIURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
