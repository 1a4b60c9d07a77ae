package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attrfs/attrfs/internal/logger"
	"github.com/attrfs/attrfs/pkg/config"
	"github.com/attrfs/attrfs/pkg/fs"
	"github.com/attrfs/attrfs/pkg/object"
	"github.com/attrfs/attrfs/pkg/server"
)

// createInitialStructure publishes the built-in daemon objects: a
// "daemon" directory with identity attributes plus an uptime counter
// that a background goroutine refreshes.
func createInitialStructure(fsys *fs.Filesystem) (*object.Object, *object.StaticOps, error) {
	ops := object.NewStaticOps(map[string]string{
		"name":    "attrfsd\n",
		"version": "1.0.0\n",
		"uptime":  "0\n",
	})

	daemon := object.New("daemon", nil)
	daemon.Ops = ops
	daemon.Type = &object.Type{
		Name: "daemon",
		DefaultAttrs: []*object.Attribute{
			{Name: "name", Mode: 0444},
			{Name: "version", Mode: 0444},
			{Name: "uptime", Mode: 0444},
		},
	}

	if err := fsys.CreateDir(daemon); err != nil {
		return nil, nil, fmt.Errorf("failed to create daemon directory: %w", err)
	}
	return daemon, ops, nil
}

// publishUptime refreshes the daemon uptime attribute once a second and
// notifies waiters, until the context ends.
func publishUptime(ctx context.Context, fsys *fs.Filesystem, daemon *object.Object, ops *object.StaticOps) {
	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			value := fmt.Sprintf("%d\n", int(time.Since(start).Seconds()))
			if _, err := ops.Store(daemon, &object.Attribute{Name: "uptime"}, []byte(value)); err != nil {
				logger.Warn("failed to update uptime: %v", err)
				continue
			}
			if err := fsys.Notify(daemon, "", "uptime"); err != nil {
				logger.Warn("uptime notification failed: %v", err)
			}
		}
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	initConfig := flag.Bool("init-config", false, "Write a starter config file to the default location and exit")
	logLevel := flag.String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	mountpoint := flag.String("mountpoint", "", "Override the configured FUSE mountpoint")
	flag.Parse()

	if *initConfig {
		path, err := config.InitConfig(false)
		if err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Wrote starter configuration to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags win over file and environment.
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *mountpoint != "" {
		cfg.Adapters.FUSE.Mountpoint = *mountpoint
	}

	logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	fmt.Println("attrfsd - attribute filesystem daemon")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsResult := config.InitializeMetrics(cfg)

	fsys := fs.New()
	fsys.SetMetrics(metricsResult.FSMetrics)

	daemon, daemonOps, err := createInitialStructure(fsys)
	if err != nil {
		log.Fatalf("Failed to create initial structure: %v", err)
	}
	go publishUptime(ctx, fsys, daemon, daemonOps)

	if err := config.BuildSeed(fsys, &cfg.Seed); err != nil {
		log.Fatalf("Failed to build seeded object tree: %v", err)
	}
	logger.Info("Published %d seeded object(s)", len(cfg.Seed.Objects))

	adapters, err := config.CreateAdapters(cfg)
	if err != nil {
		log.Fatalf("Failed to create adapters: %v", err)
	}

	srv := server.New(fsys)
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			log.Fatalf("Failed to register %s adapter: %v", a.Protocol(), err)
		}
	}

	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Serving attribute tree at %s. Press Ctrl+C to stop.", cfg.Adapters.FUSE.Mountpoint)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		select {
		case err := <-serverDone:
			if err != nil && err != context.Canceled {
				logger.Error("Server shutdown error: %v", err)
				os.Exit(1)
			}
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Error("Shutdown timed out after %v", cfg.Server.ShutdownTimeout)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil && err != context.Canceled {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
