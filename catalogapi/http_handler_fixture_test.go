package catalogapi_test // avoid import cycle with sqlite package

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/server"
	"github.com/joshjon/kit/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/catalogapi"
	"github.com/rivulet-sh/rivulet/constants"
	"github.com/rivulet-sh/rivulet/sqlite"
)

const testTimeout = 5 * time.Second

type HTTPHandlerTestFixture struct {
	Server *server.Server
	Store  *catalog.Store
	t      *testing.T
	stop   func()
}

func NewHTTPHandlerTestFixture(t *testing.T, opts ...catalogapi.HTTPHandlerOption[*catalog.Store]) *HTTPHandlerTestFixture {
	t.Helper()

	store := sqlite.NewTestCatalogStore(t)

	logger := log.NewLogger(log.WithDevelopment())
	srv, err := server.NewServer(testutil.GetFreePort(t),
		server.WithLogger(logger),
		server.WithRequestTimeout(testTimeout),
		server.WithMiddleware(catalogapi.NamespaceContextMiddleware()),
	)
	require.NoError(t, err)
	srv.Register("", catalogapi.NewHTTPHandler(store, opts...))

	go srv.Start()
	err = srv.WaitHealthy(10, time.Millisecond)
	require.NoError(t, err)

	return &HTTPHandlerTestFixture{
		Server: srv,
		Store:  store,
		t:      t,
		stop: func() {
			srv.Stop(context.Background())
		},
	}
}

func (t *HTTPHandlerTestFixture) NamespacesURL() string {
	return t.URLForPath("/namespaces")
}

func (t *HTTPHandlerTestFixture) NamespaceURL(namespaceID catalog.NamespaceID) string {
	return fmt.Sprintf("%s/%s", t.NamespacesURL(), namespaceID)
}

func (t *HTTPHandlerTestFixture) NamespaceByNameURL(name string) string {
	return fmt.Sprintf("%s/name/%s", t.NamespacesURL(), name)
}

func (t *HTTPHandlerTestFixture) MappingsURL(namespaceID catalog.NamespaceID) string {
	return t.NamespaceURL(namespaceID) + "/mappings"
}

func (t *HTTPHandlerTestFixture) MappingURL(namespaceID catalog.NamespaceID, serviceName string, clusterID catalog.ClusterID) string {
	return fmt.Sprintf("%s/%s/clusters/%s", t.MappingsURL(namespaceID), serviceName, clusterID)
}

func (t *HTTPHandlerTestFixture) ReplaceMappingsURL(namespaceID catalog.NamespaceID) string {
	return t.MappingsURL(namespaceID) + "/replace"
}

func (t *HTTPHandlerTestFixture) TopologiesURL() string {
	return t.URLForPath("/topologies")
}

func (t *HTTPHandlerTestFixture) TopologyURL(topologyID catalog.TopologyID) string {
	return fmt.Sprintf("%s/%s", t.TopologiesURL(), topologyID)
}

func (t *HTTPHandlerTestFixture) URLForPath(path string) string {
	path = "/" + strings.TrimPrefix(path, "/")
	return t.Server.Address() + path
}

func (t *HTTPHandlerTestFixture) AddNamespace(ctx context.Context) *catalog.Namespace {
	ns := catalog.NewNamespace(testutil.RandName(), constants.DefaultStreamingEngine, constants.DefaultTimeSeriesStore)
	require.NoError(t.t, t.Store.CreateNamespace(ctx, ns))
	return ns
}

func (t *HTTPHandlerTestFixture) AddMapping(ctx context.Context, namespaceID catalog.NamespaceID, serviceName string) catalog.ServiceClusterMapping {
	mapping := catalog.ServiceClusterMapping{
		NamespaceID: namespaceID,
		ServiceName: serviceName,
		ClusterID:   catalog.NewID[catalog.ClusterID](),
	}
	_, err := t.Store.PutServiceClusterMapping(ctx, mapping)
	require.NoError(t.t, err)
	return mapping
}

func (t *HTTPHandlerTestFixture) AddTopology(ctx context.Context, namespaceID catalog.NamespaceID) *catalog.Topology {
	top := catalog.NewTopology(namespaceID, testutil.RandName())
	require.NoError(t.t, t.Store.CreateTopology(ctx, top))
	return top
}

func (t *HTTPHandlerTestFixture) Stop() {
	t.stop()
}
