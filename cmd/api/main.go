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

	"golang.org/x/sync/errgroup"

	"github.com/marcelsud/telephony-gateway/config"
	"github.com/marcelsud/telephony-gateway/internal/bootstrap"
	"github.com/marcelsud/telephony-gateway/internal/http/chi"
	"github.com/marcelsud/telephony-gateway/metrics"
	"github.com/marcelsud/telephony-gateway/routes"
	"github.com/marcelsud/telephony-gateway/webhook"
)

const TIMEOUT = 30 * time.Second

/* “a porta de entrada e saída da minha aplicação”
* É no main.go onde é feita toda a “amarração” dos demais pacotes:
* config, logger, idempotency store, executors, dispatcher e o router HTTP.
* https://eltonminetto.dev/post/2022-07-06-error-handling-cli-applications-golang/
 */

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger("telephony-gateway", cfg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	store, err := bootstrap.NewIdempotencyStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	collector := metrics.NewCollector(store.Store)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		return fmt.Errorf("creating metrics exporter: %w", err)
	}
	defer exporter.Shutdown(context.Background())

	opts := chi.Options{
		Logger:          logger,
		SignatureHeader: cfg.WebhookSignatureHeader,
		Collector:       collector,
		Metrics:         exporter.ServeHTTP(),
		Instrument:      exporter.Middleware,
		Health:          store.Health,
		RequestTimeout:  TIMEOUT,
	}

	platform, platformExec, err := bootstrap.NewPlatform(ctx, cfg, logger, exporter)
	if err != nil {
		logger.Warn().Err(err).Msg("platform client disabled")
	} else {
		collector.Add(platformExec)
		opts.Platform = platform
	}

	forwardExec := bootstrap.NewForwardExecutor(cfg, logger, exporter)
	collector.Add(forwardExec)

	registry := webhook.NewRegistry()
	loader := routes.NewLoader()
	if err := loader.Load(cfg.RoutesFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading routes: %w", err)
		}
		logger.Warn().Str("file", cfg.RoutesFile).Msg("routes file not found, no handlers registered")
	}
	if err := loader.Register(registry, logger, forwardExec); err != nil {
		return fmt.Errorf("registering handlers: %w", err)
	}
	opts.Routes = loader

	verifier, err := bootstrap.NewVerifier(cfg, logger)
	if err != nil {
		return err
	}
	opts.Dispatcher = webhook.NewService(store.Store, verifier, registry,
		webhook.WithLogger(logger),
		webhook.WithObserver(exporter),
	)

	srv := &http.Server{
		ReadTimeout:  TIMEOUT,
		WriteTimeout: TIMEOUT,
		Addr:         ":" + cfg.Port,
		Handler:      chi.Handlers(ctx, opts),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Int("routes", len(loader.List())).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return shutdown(gctx, srv)
	})
	if store.Run != nil {
		g.Go(func() error {
			return store.Run(gctx)
		})
	}
	return g.Wait()
}

func shutdown(ctxShutdown context.Context, server *http.Server) error {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	if err := server.Shutdown(ctxTimeout); err != nil {
		return fmt.Errorf("forcing closing the server: %w", err)
	}
	fmt.Printf("\nShutting down server...\n")
	return nil
}
