// Package server wires the reference ledger: configuration, storage, the
// ledger service and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/dmitrijs2005/rollcall/internal/dbx"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/dmitrijs2005/rollcall/internal/server/config"
	"github.com/dmitrijs2005/rollcall/internal/server/ledger"
	"github.com/dmitrijs2005/rollcall/internal/timex"

	gs "github.com/dmitrijs2005/rollcall/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	ledger *ledger.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	loc, err := timex.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}

	var seed ledger.Seed
	if c.SeedFile != "" {
		if seed, err = ledger.LoadSeed(c.SeedFile); err != nil {
			return nil, err
		}
	}

	app := &App{config: c, logger: logger}

	var repo ledger.Repository
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, ledger is kept in memory")
		mem := ledger.NewMemoryRepository()
		if err := seed.Apply(ctx, mem); err != nil {
			return nil, err
		}
		repo = mem
	} else {
		db, err := ledger.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return seed.Apply(ctx, ledger.NewPostgresRepository(tx))
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		app.db = db
		repo = ledger.NewPostgresRepository(db)
	}

	app.ledger = ledger.NewService(repo, logger, ledger.WithLocation(loc))
	return app, nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.ledger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or the server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}
	app.logger.Info(ctx, "Stopped")
}
