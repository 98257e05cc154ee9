package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/kompara/internal/affiliate"
	"github.com/donaldgifford/kompara/internal/api"
	"github.com/donaldgifford/kompara/internal/config"
	"github.com/donaldgifford/kompara/internal/scheduler"
	"github.com/donaldgifford/kompara/internal/telemetry"
	"github.com/donaldgifford/kompara/pkg/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the search proxy",
		Long: "Starts the HTTP server. Credentials come from the config file or the\n" +
			"environment (SHOPEE_APP_ID / CHAVE_API_SHOPEE by default). Missing\n" +
			"credentials do not stop the server: /search answers 500 and /readyz\n" +
			"reports unavailable until they are provided.",
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		SampleRatio:    *cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.Interval,
	}, log)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	svc, err := newService(cfg, affiliate.EnvSource{}, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      svc.echo,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if svc.scheduler != nil {
		svc.scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "scheme", cfg.Provider.Scheme, "version", Version)
		if err := svc.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if svc.scheduler != nil {
		select {
		case <-svc.scheduler.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	if err := svc.echo.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down server: %w", err))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
	}

	log.Info("server stopped")
	return errors.Join(errs...)
}

// service is the assembled server and its background jobs.
type service struct {
	echo      *echo.Echo
	scheduler *scheduler.Scheduler // nil unless the REST token warmer runs
}

// newService wires the affiliate client, rate limiter, token warmer and
// HTTP routes from cfg. Credentials that cannot be resolved are not fatal:
// the server answers searches with a configuration error instead.
func newService(cfg *config.Config, env affiliate.Source, log *slog.Logger) (*service, error) {
	scheme, err := affiliate.ParseScheme(cfg.Provider.Scheme)
	if err != nil {
		return nil, err
	}

	var limiter *affiliate.RateLimiter
	if rl := cfg.Provider.RateLimit; rl.Enabled {
		limiter = affiliate.NewRateLimiter(rl.PerSecond, rl.Burst, rl.DailyLimit)
	}

	deps := api.Deps{
		Scheme:  scheme,
		Limiter: limiter,
		Logger:  log,
		Version: Version,
	}

	svc := &service{}

	creds, credErr := cfg.Provider.ResolveCredentials(env)
	if credErr != nil {
		log.Error("affiliate credentials unavailable; searches will fail", "error", credErr)
		deps.Searcher = affiliate.Unconfigured(credErr)
		deps.Ready = func(context.Context) error { return credErr }
		svc.echo = api.NewServer(deps)
		return svc, nil
	}
	log.Info("affiliate credentials resolved", "app_id", creds.AppID)

	opts := []affiliate.ClientOption{
		affiliate.WithTimeout(cfg.Provider.Timeout),
		affiliate.WithRetry(cfg.Provider.Retries(), cfg.Provider.RetryBackoff),
		affiliate.WithLogger(log),
	}
	if limiter != nil {
		opts = append(opts, affiliate.WithRateLimiter(limiter))
	}
	tokenOpts := []affiliate.TokenOption{
		affiliate.WithSafetyMargin(cfg.Provider.TokenSafetyMargin),
		affiliate.WithTokenLogger(log),
	}

	searcher, tokens, err := affiliate.New(scheme, creds, cfg.Provider.BaseURL, tokenOpts, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating affiliate client: %w", err)
	}
	deps.Searcher = searcher
	deps.Tokens = tokens

	if tokens != nil && !cfg.Schedule.DisableTokenRefresh {
		svc.scheduler, err = scheduler.New(tokens, cfg.Schedule.TokenRefreshInterval, log)
		if err != nil {
			return nil, fmt.Errorf("creating scheduler: %w", err)
		}
	}

	svc.echo = api.NewServer(deps)
	return svc, nil
}
