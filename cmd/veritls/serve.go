package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/veritls/veritls/internal/config"
	"github.com/veritls/veritls/internal/hostname"
	"github.com/veritls/veritls/internal/observability"
	"github.com/veritls/veritls/internal/probe"
	httpserver "github.com/veritls/veritls/internal/server/http"
	"github.com/veritls/veritls/internal/verify"
)

// shutdownGracePeriod bounds how long in-flight requests may finish.
const shutdownGracePeriod = 15 * time.Second

// reloadableVerifier swaps its backing verifier atomically so config
// hot reloads apply to subsequent requests without restarting.
type reloadableVerifier struct {
	current atomic.Value // verify.Verifier
}

func newReloadableVerifier(v verify.Verifier) *reloadableVerifier {
	r := &reloadableVerifier{}
	r.current.Store(v)
	return r
}

func (r *reloadableVerifier) swap(v verify.Verifier) {
	r.current.Store(v)
}

func (r *reloadableVerifier) get() verify.Verifier {
	return r.current.Load().(verify.Verifier)
}

// VerifyPeerCertMatchesHost implements verify.Verifier.
func (r *reloadableVerifier) VerifyPeerCertMatchesHost(ctx context.Context, session verify.Session, host string) bool {
	return r.get().VerifyPeerCertMatchesHost(ctx, session, host)
}

// VerifyDetailed implements verify.Verifier.
func (r *reloadableVerifier) VerifyDetailed(ctx context.Context, session verify.Session, host string) verify.Result {
	return r.get().VerifyDetailed(ctx, session, host)
}

// runServe runs the diagnostic server until interrupted.
func runServe(flags cliFlags, cfg *config.Config, logger observability.Logger) {
	logger.Info("starting veritls",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	metrics := observability.NewMetrics("veritls")
	metrics.SetBuildInfo(version, gitCommit)

	verifyMetrics := verify.NewMetrics("veritls")
	verifyMetrics.MustRegister(metrics.Registry())

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Observability.Tracing.ServiceName,
		OTLPEndpoint: cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Observability.Tracing.SamplingRate,
		Enabled:      cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	buildVerifier := func(c *config.Config) verify.Verifier {
		return verify.NewVerifier(
			verify.WithVerifierLogger(logger),
			verify.WithVerifierMetrics(verifyMetrics),
			verify.WithLegacyCommonNameFallback(c.Verification.LegacyCommonNameEnabled()),
		)
	}

	verifier := newReloadableVerifier(buildVerifier(cfg))

	prober := probe.NewProber(
		probe.WithProberLogger(logger),
		probe.WithVerifier(verifier),
		probe.WithNormalizer(hostname.ForPolicy(cfg.Verification.IDNA)),
		probe.WithTimeout(cfg.Probe.Timeout.Duration()),
	)

	server := httpserver.NewServer(cfg.Server, cfg.Observability.Metrics,
		httpserver.WithServerLogger(logger),
		httpserver.WithServerMetrics(metrics),
		httpserver.WithServerTracer(tracer),
		httpserver.WithServerVerifier(verifier),
		httpserver.WithServerProber(prober),
		httpserver.WithServerNormalizer(hostname.ForPolicy(cfg.Verification.IDNA)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := startConfigWatcher(ctx, flags.configPath, logger, func(updated *config.Config) {
		verifier.swap(buildVerifier(updated))
		logger.Info("verification policy updated",
			observability.Bool("legacyCommonNameFallback", updated.Verification.LegacyCommonNameEnabled()),
			observability.Bool("idna", updated.Verification.IDNA),
		)
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down",
			observability.String("signal", sig.String()),
		)
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", observability.Error(err))
		}
	}

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := server.ShutdownWithTimeout(shutdownGracePeriod); err != nil {
		logger.Error("graceful shutdown failed", observability.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCancel()
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", observability.Error(err))
	}

	logger.Info("veritls stopped")
}

// startConfigWatcher begins watching the config file when it exists.
// Serving with built-in defaults and no file is a supported setup.
func startConfigWatcher(
	ctx context.Context,
	path string,
	logger observability.Logger,
	callback config.Callback,
) *config.Watcher {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	watcher, err := config.NewWatcher(path, callback,
		config.WithWatcherLogger(logger),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}

	return watcher
}
