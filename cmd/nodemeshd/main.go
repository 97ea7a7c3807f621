// Command nodemeshd runs the discovery service and the network registry
// behind the HTTP API.
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

	"github.com/itsneelabh/nodemesh"
	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/internal/sweeper"
	"github.com/itsneelabh/nodemesh/pkg/api"
	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/mirror"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	envFile := flag.String("env-file", "", "path to a .env file loaded before the environment")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "nodemeshd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	var opts []core.Option
	if envFile != "" {
		opts = append(opts, core.WithDotEnv(envFile))
	}
	if configPath != "" {
		opts = append(opts, core.WithConfigFile(configPath))
	}
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Info("Starting nodemeshd", map[string]interface{}{
		"name":           cfg.Name,
		"version":        nodemesh.Version,
		"port":           cfg.Port,
		"shared_store":   cfg.Discovery.SharedStore,
		"mirror":         cfg.Mirror.Enabled,
		"telemetry":      cfg.Telemetry.Enabled,
		"prune_interval": cfg.Discovery.PruneInterval.String(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *telemetry.RegistryMetrics
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.Setup(ctx, telemetry.Config{
			ServiceName:     cfg.Telemetry.ServiceName,
			ServiceVersion:  nodemesh.Version,
			Namespace:       cfg.Namespace,
			Exporter:        cfg.Telemetry.Exporter,
			Endpoint:        cfg.Telemetry.Endpoint,
			Insecure:        cfg.Telemetry.Insecure,
			SamplingRate:    cfg.Telemetry.SamplingRate,
			MetricsEndpoint: cfg.Telemetry.MetricsEndpoint,
		})
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.Warn("Telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
			}
		}()

		metrics, err = telemetry.NewRegistryMetrics(provider.Meter)
		if err != nil {
			return fmt.Errorf("registry metrics: %w", err)
		}
	}

	bus := events.NewBus()
	defer bus.Close()

	meshOpts := []nodemesh.MeshOption{
		nodemesh.WithLogger(log),
		nodemesh.WithEventBus(bus),
		nodemesh.WithMetrics(metrics),
	}
	if cfg.Discovery.SharedStore {
		meshOpts = append(meshOpts, nodemesh.WithSharedStore())
	}
	mesh := nodemesh.NewMesh(meshOpts...)
	defer func() {
		if err := mesh.Close(); err != nil {
			log.Warn("Mesh close failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	sweepOpts := []sweeper.Option{
		sweeper.WithInterval(cfg.Discovery.PruneInterval),
		sweeper.WithTopology(mesh.Network),
		sweeper.WithLogger(log),
	}
	if cfg.Mirror.Enabled {
		m, err := newMirror(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer m.Close()
		sweepOpts = append(sweepOpts, sweeper.WithMirror(m))
	}

	sw := sweeper.New(mesh.Discovery, sweepOpts...)
	sweepDone := make(chan error, 1)
	go func() {
		sweepDone <- sw.Run(ctx)
	}()

	server := api.NewServer(cfg, mesh.Discovery, mesh.Network,
		api.WithLogger(log),
		api.WithEventBus(bus),
	)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			stop()
			<-sweepDone
			return fmt.Errorf("http server: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := <-sweepDone; err != nil {
		errs = append(errs, fmt.Errorf("sweeper: %w", err))
	}

	sweeps, pruned := sw.Stats()
	log.Info("nodemeshd stopped", map[string]interface{}{
		"sweeps": sweeps,
		"pruned": pruned,
	})
	return errors.Join(errs...)
}

func newMirror(ctx context.Context, cfg *core.Config, log logger.Logger) (*mirror.RedisMirror, error) {
	breaker := core.NewCircuitBreaker(core.CircuitBreakerParams{
		Name:   "redis-mirror",
		Config: cfg.Mirror.CircuitBreaker,
		Logger: log,
	})

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	m, err := mirror.NewRedisMirror(connectCtx, cfg.Mirror.RedisURL,
		mirror.WithNamespace(cfg.Mirror.Namespace),
		mirror.WithTTL(cfg.Mirror.TTL),
		mirror.WithCircuitBreaker(breaker),
		mirror.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("redis mirror: %w", err)
	}
	return m, nil
}
