// Command server serves the grids and trees declared in HCL files over HTTP.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/duckdb/duckdb-go/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nickyhof/easyext"
	"github.com/nickyhof/easyext/config"
	"github.com/nickyhof/easyext/core"
	"github.com/nickyhof/easyext/ctxlog"
	"github.com/nickyhof/easyext/ps"
	"github.com/nickyhof/easyext/sqlsource"
)

// Version is set at build time via -ldflags
var Version = "dev"

type options struct {
	port      int
	baseDir   string
	gitUrl    string
	duckdb    string
	database  string
	config    string
	logLevel  string
	logFormat string
	logFile   string
}

func main() {
	var opts options
	flag.IntVar(&opts.port, "port", 3000, "HTTP port to listen on")
	flag.StringVar(&opts.baseDir, "baseDir", "", "Base directory for persistence (memory if empty)")
	flag.StringVar(&opts.gitUrl, "gitUrl", "", "Git URL for remote sync")
	flag.StringVar(&opts.duckdb, "duckdb", "", "Serve records from a DuckDB database file instead of Git")
	flag.StringVar(&opts.database, "database", "easyext", "Database holding the records")
	flag.StringVar(&opts.config, "config", "easyext.hcl", "HCL file or directory declaring grids and trees")
	flag.StringVar(&opts.logLevel, "logLevel", "info", "Log level: debug, info, warn or error")
	flag.StringVar(&opts.logFormat, "logFormat", "text", "Log format: text or json")
	flag.StringVar(&opts.logFile, "logFile", "", "Also write logs to this file, rotated")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("easyext server v%s\n", Version)
		return
	}

	logger := newLogger(opts)
	slog.SetDefault(logger)

	if err := run(opts, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(opts options) *slog.Logger {
	var w io.Writer = os.Stderr
	if opts.logFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.logFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}
	return ctxlog.New(opts.logLevel, opts.logFormat, w)
}

func run(opts options, logger *slog.Logger) error {
	ctx := ctxlog.WithLogger(context.Background(), logger)

	cfg, err := config.Load(ctx, opts.config)
	if err != nil {
		return err
	}
	if len(cfg.Controllers) == 0 {
		logger.Warn("no controllers declared", "config", opts.config)
	}

	store, closeStore, err := openStore(opts, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	server := NewServer(easyext.Handler(store, cfg, logger), logger)
	if err := server.Start(fmt.Sprintf(":%d", opts.port)); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openStore(opts options, logger *slog.Logger) (core.Store, func(), error) {
	if opts.duckdb != "" {
		logger.Info("using duckdb records", "path", opts.duckdb)
		conn, err := sql.Open("duckdb", opts.duckdb)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open duckdb: %w", err)
		}
		return sqlsource.New(conn), func() { conn.Close() }, nil
	}

	var (
		persistence *ps.Persistence
		err         error
	)
	if opts.baseDir == "" {
		logger.Info("using memory persistence")
		persistence, err = ps.NewMemoryPersistence()
	} else {
		logger.Info("using file persistence", "baseDir", opts.baseDir)
		var gitUrlPtr *string
		if opts.gitUrl != "" {
			gitUrlPtr = &opts.gitUrl
		}
		persistence, err = ps.NewFilePersistence(opts.baseDir, gitUrlPtr)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize persistence: %w", err)
	}

	identity := core.Identity{Name: "easyext server", Email: "server@easyext.local"}
	store, err := easyext.Open(persistence).Store(opts.database, identity)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}
