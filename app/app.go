// Package app wires the configured backends into a ready survey service.
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/backend/local"
	"github.com/perkloop/surveydata/backend/mongodb"
	"github.com/perkloop/surveydata/backend/sheets"
	"github.com/perkloop/surveydata/backend/sqlite"
	"github.com/perkloop/surveydata/cache"
	"github.com/perkloop/surveydata/config"
	"github.com/perkloop/surveydata/localstore"
	"github.com/perkloop/surveydata/survey"
)

type App struct {
	*survey.Service
	config.Config

	closers []func(context.Context) error
}

// New opens the configured primary backend, puts the local store behind it
// as the fallback source and hands both to the router. In local mode the
// store is the only source.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	store, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		return nil, errors.Wrap(err, "app.local_store")
	}

	app := &App{Config: cfg}

	sources := []backend.Client{}
	switch cfg.Backend {
	case config.BackendSheets:
		sources = append(sources, sheets.New(cfg.SheetsURL, cfg.RequestTimeout))
	case config.BackendMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, errors.Wrap(err, "app.mongo")
		}
		app.closers = append(app.closers, client.Close)
		sources = append(sources, client)
	case config.BackendSQLite:
		client, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "app.sqlite")
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		sources = append(sources, client)
	case config.BackendLocal:
		// local mode: the store is the primary, no separate fallback
	default:
		return nil, errors.Errorf("app: unknown backend kind %q", cfg.Backend)
	}
	sources = append(sources, local.New(store))

	cacheMgr := cache.New(cfg.CacheFreshFor, cfg.CacheRefreshAfter)
	app.Service = survey.New(cacheMgr, cfg.RequestTimeout, sources...)
	return app, nil
}

func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var last error
	for _, closeFn := range a.closers {
		if err := closeFn(ctx); err != nil {
			last = err
		}
	}
	return last
}
