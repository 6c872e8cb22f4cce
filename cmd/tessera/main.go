// Package main implements the tessera server binary: the row routing
// and partition catalog service, serving HTTP and gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tesseradb/tessera/internal/app"
	"github.com/tesseradb/tessera/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		httpAddr    string
		grpcAddr    string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP admin server address")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC server address")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Tessera - Partition Routing Service\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tessera [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tessera --data-dir /data/tessera\n")
		fmt.Fprintf(os.Stderr, "  tessera --config /etc/tessera/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  TESSERA_DATA_DIR       Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  TESSERA_HTTP_ADDR      HTTP admin server address\n")
		fmt.Fprintf(os.Stderr, "  TESSERA_GRPC_ADDR      gRPC server address\n")
		fmt.Fprintf(os.Stderr, "  TESSERA_STORAGE_TYPE   Archive storage type (local, s3)\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("tessera version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	log := newLogger(logLevel)

	cfg, err := loadConfig(configFile, dataDir, httpAddr, grpcAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}

	if err := application.WaitForShutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	if err := application.Stop(context.Background()); err != nil {
		log.Error().Err(err).Msg("stop error")
		os.Exit(1)
	}
}

// loadConfig layers configuration: file, then environment, then flags.
func loadConfig(configFile, dataDir, httpAddr, grpcAddr string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if grpcAddr != "" {
		cfg.GRPC.Addr = grpcAddr
	}

	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
