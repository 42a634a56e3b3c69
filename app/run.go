package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/server"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/catalogapi"
	"github.com/rivulet-sh/rivulet/constants"
	"github.com/rivulet-sh/rivulet/notif"
	"github.com/rivulet-sh/rivulet/postgres"
	pgmigrations "github.com/rivulet-sh/rivulet/postgres/migrations"
	"github.com/rivulet-sh/rivulet/sqlite"
	sqlitemigrations "github.com/rivulet-sh/rivulet/sqlite/migrations"
)

// Run starts the catalog server and blocks until ctx is cancelled or the
// server fails.
func Run(ctx context.Context, logger log.Logger, cfg ServerConfig) error {
	store, closeStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	if _, err = InitNamespace(ctx, store, logger, constants.DefaultNamespaceName); err != nil {
		return err
	}

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMiddleware(catalogapi.NamespaceContextMiddleware()),
	}
	if len(cfg.CorsOrigins) > 0 {
		srvOpts = append(srvOpts, server.WithCORS(cfg.CorsOrigins...))
	}
	if cfg.TLS != nil {
		srvOpts = append(srvOpts, server.WithTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CACertFile))
	}
	srv, err := server.NewServer(cfg.Port, srvOpts...)
	if err != nil {
		return err
	}

	var handlerOpts []catalogapi.HTTPHandlerOption[*catalog.Store]
	if cfg.Notifier != nil {
		nc, err := notif.ConnectNATS(strings.Join(cfg.Notifier.NatsURLs, ","))
		if err != nil {
			return fmt.Errorf("connect notifier nats: %w", err)
		}
		defer nc.Close()
		notifier := notif.NewNotifier(notif.NewNATSPublisher(nc), logger)
		handlerOpts = append(handlerOpts, catalogapi.WithNotifier[*catalog.Store](notifier))
	}

	srv.Register("", catalogapi.NewHTTPHandler(store, handlerOpts...))

	return Serve(ctx, srv, logger)
}

// openStorage opens the configured database, applies migrations, and wraps it
// in a catalog store.
func openStorage(ctx context.Context, cfg StorageConfig) (*catalog.Store, func(), error) {
	switch cfg.Driver {
	case StorageDriverPostgres:
		var pgDialOpts []postgres.DialOption
		if cfg.Postgres.TLS != nil {
			pgDialOpts = append(pgDialOpts, postgres.WithTLS(postgres.TLSConfig{
				CertFile:           cfg.Postgres.TLS.CertFile,
				KeyFile:            cfg.Postgres.TLS.KeyFile,
				CACertFile:         cfg.Postgres.TLS.CACertFile,
				InsecureSkipVerify: cfg.Postgres.TLS.InsecureSkipVerify,
			}))
		}
		pool, err := postgres.Dial(ctx, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.HostPort, cfg.Postgres.Database, pgDialOpts...)
		if err != nil {
			return nil, nil, err
		}
		if err = postgres.MigrateDatabase(pool, pgmigrations.FS); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres database: %w", err)
		}
		return catalog.NewStore(postgres.NewCatalogRepository(pool)), pool.Close, nil

	case StorageDriverSQLite:
		var openOpts []sqlite.OpenOption
		if cfg.SQLite.Dir != "" {
			openOpts = append(openOpts, sqlite.WithDir(cfg.SQLite.Dir))
		} else {
			openOpts = append(openOpts, sqlite.WithInMemory())
		}
		db, err := sqlite.Open(ctx, openOpts...)
		if err != nil {
			return nil, nil, err
		}
		if err = sqlite.MigrateDatabase(db, sqlitemigrations.FS); err != nil {
			db.Close() //nolint:errcheck
			return nil, nil, fmt.Errorf("migrate sqlite database: %w", err)
		}
		closeFn := func() {
			db.Close() //nolint:errcheck
		}
		return catalog.NewStore(sqlite.NewCatalogRepository(db)), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
