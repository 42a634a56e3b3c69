package app

import (
	"context"
	"fmt"
	"time"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/server"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/constants"
	"github.com/rivulet-sh/rivulet/logkey"
)

func Serve(ctx context.Context, srv *server.Server, logger log.Logger) error {
	errs := make(chan error)

	logger.Info("starting server", "address", srv.Address())
	go func() {
		defer close(errs)
		if err := srv.Start(); err != nil {
			errs <- fmt.Errorf("start server: %w", err)
		}
	}()
	defer srv.Stop(ctx) //nolint:errcheck

	logger.Info("waiting for server to be healthy")
	if err := srv.WaitHealthy(15, time.Second); err != nil {
		return err
	}
	logger.Info("server healthy")

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		logger.Info("server stopped")
		return nil
	}
}

// InitNamespace ensures a namespace with the given name exists and returns
// it.
func InitNamespace(ctx context.Context, store *catalog.Store, logger log.Logger, name string) (*catalog.Namespace, error) {
	ns, err := store.ReadNamespaceByName(ctx, name)
	if err != nil {
		if errtag.HasTag[errtag.NotFound](err) {
			ns = catalog.NewNamespace(name, constants.DefaultStreamingEngine, constants.DefaultTimeSeriesStore)
			if err = store.CreateNamespace(ctx, ns); err != nil {
				if !errtag.HasTag[errtag.Conflict](err) {
					return nil, err
				}
				// Another server instance created the namespace first, so we can read it again
				ns, err = store.ReadNamespaceByName(ctx, name)
				if err != nil {
					return nil, fmt.Errorf("read existing namespace: %w", err)
				}
				return ns, nil
			}
			logger.Info("created new namespace", logkey.NamespaceID, ns.ID, logkey.NamespaceName, name)
			return ns, nil
		}
		return nil, err
	}
	return ns, nil
}
