// avstack — Aviationstack MCP server.
// Serves aviation-data tools over MCP stdio by default, or over HTTP with
// --http. Requires AVIATIONSTACK_API_KEY.

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aviolabs/avstack/internal/domain/audit"
	"github.com/aviolabs/avstack/internal/infra/aviationstack"
	"github.com/aviolabs/avstack/internal/infra/config"
	"github.com/aviolabs/avstack/internal/infra/eventbus"
	"github.com/aviolabs/avstack/internal/infra/sqlite"
	"github.com/aviolabs/avstack/internal/mcpserver"
	"github.com/aviolabs/avstack/internal/server"
	"github.com/aviolabs/avstack/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("avstack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	httpAddr := fs.String("http", "", "Serve MCP over HTTP on this address instead of stdio")
	dbPath := fs.String("db", "", "SQLite path for the invocation log")
	configPath := fs.String("config", "", "Path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	return serve(*httpAddr, *dbPath, *configPath)
}

func serve(httpAddr, dbPath, configPath string) int {
	// Best-effort .env bootstrap for local development.
	_ = godotenv.Load() //nolint:errcheck

	// Stdout belongs to the stdio MCP transport; everything else goes to
	// stderr.
	logger := log.New(os.Stderr, "avstack: ", log.LstdFlags)

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			logger.Print(err)
			return 1
		}
	} else {
		cfg = config.Load()
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.HTTPAddr != "" && cfg.DBPath == "" {
		// HTTP mode always serves /v1/invocations; without a path the
		// log lives for the process lifetime only.
		cfg.DBPath = ":memory:"
	}

	client, err := aviationstack.New(aviationstack.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.Backoff(),
	})
	if err != nil {
		logger.Printf("startup: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db       *sql.DB
		auditSvc *audit.Service
		bus      eventbus.EventBus
	)
	if cfg.DBPath != "" {
		db, err = sqlite.NewDB(cfg.DBPath)
		if err != nil {
			logger.Printf("open database: %v", err)
			return 1
		}
		if err := sqlite.MigrateUp(db); err != nil {
			logger.Printf("migrate database: %v", err)
			db.Close() //nolint:errcheck
			return 1
		}
		auditSvc = audit.NewService(db)
		b := eventbus.New()
		bus = b
		audit.StartRecorder(ctx, b, auditSvc, logger)
	}

	svc := mcpserver.NewService(client, bus, logger)
	mcpSrv := mcpserver.New(svc, version.Version)

	if cfg.HTTPAddr == "" {
		logger.Printf("serving MCP over stdio (%s)", version.String())
		if err := mcpserver.RunStdio(ctx, mcpSrv); err != nil && ctx.Err() == nil {
			logger.Printf("stdio transport: %v", err)
			return 1
		}
		if db != nil {
			db.Close() //nolint:errcheck
		}
		return 0
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.HTTPAddr
	httpSrv := server.NewServer(db, mcpSrv, auditSvc, srvCfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http server: %v", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
		return 1
	}
	return 0
}

func printHelp(out io.Writer) {
	helpText := `avstack - Aviationstack MCP server

Usage:
  avstack [options]

Options:
  --version        Show version information
  --help           Show this help message
  --http ADDR      Serve MCP over HTTP on ADDR (default: stdio transport)
  --db PATH        SQLite path for the invocation log
  --config PATH    YAML config file (env variables win)

Environment:
  AVIATIONSTACK_API_KEY                Required API key from aviationstack.com
  AVIATIONSTACK_BASE_URL               API base URL
  AVIATIONSTACK_TIMEOUT_SECONDS        Request timeout (default: 10)
  AVIATIONSTACK_MAX_RETRIES            Max retry attempts (default: 2)
  AVIATIONSTACK_RETRY_BACKOFF_SECONDS  Base retry backoff (default: 0.5)
  AVSTACK_HTTP_ADDR                    Same as --http
  AVSTACK_DB_PATH                      Same as --db

Examples:
  avstack --version
  avstack
  avstack --http :8080 --db avstack.db`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
