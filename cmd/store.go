package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mandi-pipeline/internal/normalizer"
	"github.com/sells-group/mandi-pipeline/internal/registry"
	"github.com/sells-group/mandi-pipeline/internal/resolve"
	"github.com/sells-group/mandi-pipeline/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "mandi.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(registry.NewFileStore(cfg.Registry.Path))
	if err != nil {
		return nil, eris.Wrapf(err, "load registry %s", cfg.Registry.Path)
	}
	return reg, nil
}

func initNormalizer(ctx context.Context) (*normalizer.Normalizer, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, eris.Wrap(err, "migrate store")
	}
	reg, err := initRegistry()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	return normalizer.New(st, reg, resolve.New(reg)), st, nil
}
