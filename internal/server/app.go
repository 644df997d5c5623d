// Package server wires configuration, storage, services and the HTTP API
// together and runs them until the process is signaled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tgotp/internal/cryptox"
	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/logging"
	"github.com/dmitrijs2005/tgotp/internal/server/auth"
	"github.com/dmitrijs2005/tgotp/internal/server/config"
	"github.com/dmitrijs2005/tgotp/internal/server/httpapi"
	"github.com/dmitrijs2005/tgotp/internal/server/ratelimit"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tgotp/internal/server/services"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	server    *httpapi.HTTPServer
	transfers *services.TransferService
	closers   []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger}

	tx, rm, err := app.openStorage(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	box, err := cryptox.NewBox(cryptox.DeriveKey([]byte(c.SecretsKey), []byte(c.SecretsSalt)))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("secrets key error: %w", err)
	}

	imports, pins, err := app.rateLimiters(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	verifier := auth.NewVerifier(c.BotToken, auth.WithMaxAge(c.InitDataMaxAge))

	us := services.NewUserService(tx, rm, verifier, logger)
	as := services.NewAccountService(tx, rm, box, logger)
	ts := services.NewTransferService(tx, rm, c, logger)

	app.transfers = ts
	app.server = httpapi.NewHTTPServer(c.HTTPAddr, logger, us, as, ts, imports, c.AllowedOrigins,
		httpapi.WithPINLimiter(pins))
	return app, nil
}

func (app *App) openStorage(ctx context.Context) (dbx.Transactor, repomanager.RepositoryManager, error) {
	if app.config.Storage == config.StorageMemory {
		app.logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		return dbx.NewLockTransactor(), repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db)

	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager(db)
	if err := rm.RunMigrations(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}
	return dbx.NewSQLTransactor(db, nil), rm, nil
}

// rateLimiters returns the import and PIN attempt limiters, sharing one
// Redis client. Both allow everything when no Redis URL is configured.
func (app *App) rateLimiters(ctx context.Context) (imports, pins *ratelimit.Limiter, err error) {
	if app.config.RedisURL == "" {
		app.logger.Info(ctx, "rate limiting disabled")
		return ratelimit.Disabled(), ratelimit.Disabled(), nil
	}
	client, err := ratelimit.Connect(ctx, app.config.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, client)
	counter := ratelimit.NewRedisCounter(client)
	imports = ratelimit.New(counter, "import", app.config.ImportRateLimit, app.config.ImportRateWindow)
	pins = ratelimit.New(counter, "pin", app.config.PINRateLimit, app.config.PINRateWindow)
	return imports, pins, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runJanitor purges expired export tokens every interval until ctx is done.
func (app *App) runJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.transfers.PurgeExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired export tokens purged", "count", n)
			}
		}
	}
}

// Run blocks until ctx is canceled, a termination signal arrives or the HTTP
// server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runJanitor(ctx, app.config.JanitorInterval)
	}()

	wg.Wait()
	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database and redis connections and flushes the logger.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
	app.closers = nil

	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
