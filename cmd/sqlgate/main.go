package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/registry"
	"github.com/sqlgate/sqlgate/internal/safety"
	"github.com/sqlgate/sqlgate/internal/server"
)

var (
	flagURLs         []string
	flagConfig       string
	flagEnvFile      string
	flagAllowWrite   bool
	flagRowLimit     int
	flagQueryTimeout string
	flagLogLevel     string
)

func main() {
	root := &cobra.Command{
		Use:   "sqlgate",
		Short: "MCP gateway for exploring SQL databases",
		Long: `sqlgate exposes PostgreSQL, MySQL and SQLite databases to MCP clients
through a read-only-by-default tool surface: schema introspection, sampling
and gated query execution over stdio.`,
		SilenceUsage: true,
		RunE:         run,
	}

	root.Flags().StringArrayVar(&flagURLs, "url", nil,
		"database connection URL (repeatable): postgres://, mysql:// or sqlite:path")
	root.Flags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	root.Flags().StringVar(&flagEnvFile, "env-file", "", "path to a .env file to load")
	root.Flags().BoolVar(&flagAllowWrite, "allow-write", false,
		"disable the read-only gate (dangerous)")
	root.Flags().IntVar(&flagRowLimit, "row-limit", 100, "maximum rows returned per query")
	root.Flags().StringVar(&flagQueryTimeout, "query-timeout", "30s", "per-query timeout")
	root.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		return err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Open(ctx, cfg.URLs, !cfg.AllowWrite, log)
	if err != nil {
		return err
	}
	defer reg.Close()

	if cfg.AllowWrite {
		log.Warn("write mode enabled: statements are not gated")
	}

	engine := &safety.Engine{
		RowCap:       cfg.RowLimit,
		Timeout:      timeout,
		Unrestricted: cfg.AllowWrite,
	}

	srv := server.New(ctx, reg, engine, log)
	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	log.Infof("serving %d database(s) over stdio", len(reg.Entries()))
	if err := srv.Run(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// buildConfig merges flags over environment over config file over defaults.
// A flag only wins when the user actually set it.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URLs = flagURLs
	}
	if flags.Changed("allow-write") {
		cfg.AllowWrite = flagAllowWrite
	}
	if flags.Changed("row-limit") {
		cfg.RowLimit = flagRowLimit
	}
	if flags.Changed("query-timeout") {
		cfg.QueryTimeout = flagQueryTimeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}
