// Command careauthd serves the careauth HTTP API.
//
//	careauthd -config configs/careauth.yaml
//	careauthd -dev                  # in-process miniredis, development defaults
//	careauthd -print-config         # dump the effective configuration, secrets masked
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/careauth"
	"github.com/MrEthical07/careauth/config"
	"github.com/MrEthical07/careauth/logger"
	otelexport "github.com/MrEthical07/careauth/metrics/export/otel"
	"github.com/MrEthical07/careauth/server"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to careauth.yaml (default: ./configs/careauth.yaml if present)")
		dev         = flag.Bool("dev", false, "use an in-process miniredis instead of the configured redis")
		printConfig = flag.Bool("print-config", false, "print the effective configuration and exit")
	)
	flag.Parse()

	if err := run(*configPath, *dev, *printConfig); err != nil {
		fmt.Fprintf(os.Stderr, "careauthd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, dev, printConfig bool) error {
	f, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dev {
		f.Auth.Environment = careauth.EnvDevelopment
		f.Auth.ProductionMode = false
	}

	if printConfig {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(f.Redacted())
	}

	zl, err := logger.New(f.LoggerConfig())
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	engineCfg := f.EngineConfig()
	warnings := engineCfg.Lint()
	for _, w := range warnings {
		zl.Warn("config lint", zap.String("code", w.Code), zap.String("severity", w.Severity.String()), zap.String("message", w.Message))
	}
	if engineCfg.ProductionMode {
		if err := warnings.AsError(careauth.LintHigh); err != nil {
			return err
		}
	}

	rdb, closeRedis, err := openRedis(f.Redis, dev, zl)
	if err != nil {
		return err
	}
	defer closeRedis()

	engine, err := careauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithLogger(zl).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if interval := f.Auth.Metrics.OTelLogInterval; interval > 0 {
		stopMetrics, err := startMetricsLog(engine, interval, zl)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	srv, err := server.New(engine, rdb, f.ServerConfig(), zl)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	zl.Info("careauthd started",
		zap.String("environment", engine.Environment()),
		zap.Strings("oauth_providers", engine.OAuthProviders()),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := f.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	zl.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openRedis(cfg config.RedisConfig, dev bool, zl *zap.Logger) (redis.UniversalClient, func(), error) {
	if dev {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		zl.Info("using miniredis", zap.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	zl.Info("using redis", zap.Strings("addrs", cfg.Addrs))
	return client, func() { _ = client.Close() }, nil
}

// startMetricsLog collects engine metrics through an OpenTelemetry periodic
// reader and logs every collection.
func startMetricsLog(engine *careauth.Engine, interval time.Duration, zl *zap.Logger) (func(), error) {
	reader := sdkmetric.NewPeriodicReader(
		otelexport.NewLogExporter(zl.Named("metrics")),
		sdkmetric.WithInterval(interval),
	)
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter, err := otelexport.NewOTelExporter(provider.Meter("careauth"), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			zl.Warn("metrics shutdown", zap.Error(err))
		}
		_ = exporter.Close()
	}, nil
}
