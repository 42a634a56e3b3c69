package catalogapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"testing"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/paginate"
	"github.com/joshjon/kit/server"
	"github.com/joshjon/kit/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/catalogapi"
	"github.com/rivulet-sh/rivulet/notif"
)

func TestHTTPHandler_CreateNamespace(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	req := catalogapi.CreateNamespaceRequest{
		Name:            testutil.RandName(),
		StreamingEngine: "STORM",
		TimeSeriesStore: "AMBARI_METRICS_COLLECTOR",
		Description:     "test namespace",
	}

	res := testutil.Post[server.Response[catalogapi.NamespaceResponse]](t, fixture.NamespacesURL(), req)
	got := res.Data
	assert.False(t, got.ID.IsZero())
	assert.Equal(t, req.Name, got.Name)
	assert.Equal(t, req.StreamingEngine, got.StreamingEngine)
	assert.Equal(t, req.TimeSeriesStore, got.TimeSeriesStore)
	assert.Equal(t, req.Description, got.Description)
}

func TestHTTPHandler_CreateNamespaceNameConflict(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	req := catalogapi.CreateNamespaceRequest{
		Name:            ns.Name,
		StreamingEngine: "STORM",
	}
	res := doRequest(t, http.MethodPost, fixture.NamespacesURL(), req)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestHTTPHandler_GetNamespace(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	res := testutil.Get[server.Response[catalogapi.NamespaceResponse]](t, fixture.NamespaceURL(ns.ID))
	assert.Equal(t, *ns, res.Data.Namespace)
}

func TestHTTPHandler_GetNamespaceNotFound(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	res := doRequest(t, http.MethodGet, fixture.NamespaceURL(catalog.NewID[catalog.NamespaceID]()), nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTPHandler_GetNamespaceByName(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	res := testutil.Get[server.Response[catalogapi.NamespaceResponse]](t, fixture.NamespaceByNameURL(ns.Name))
	assert.Equal(t, *ns, res.Data.Namespace)
}

func TestHTTPHandler_GetNamespaceDetail(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	m1 := fixture.AddMapping(ctx, ns.ID, "STORM")
	m2 := fixture.AddMapping(ctx, ns.ID, "KAFKA")

	url := fixture.NamespaceURL(ns.ID) + "?detail=true"
	res := testutil.Get[server.Response[catalogapi.NamespaceDetailResponse]](t, url)
	assert.Equal(t, *ns, res.Data.Namespace)
	assert.ElementsMatch(t, []catalog.ServiceClusterMapping{m1, m2}, res.Data.Mappings)

	byNameURL := fixture.NamespaceByNameURL(ns.Name) + "?detail=true"
	res = testutil.Get[server.Response[catalogapi.NamespaceDetailResponse]](t, byNameURL)
	assert.ElementsMatch(t, []catalog.ServiceClusterMapping{m1, m2}, res.Data.Mappings)
}

func TestHTTPHandler_ListNamespaces(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	numNS := 15
	pageSize := 10

	wantResps := make([]catalogapi.NamespaceResponse, numNS)
	for i := range numNS {
		ns := fixture.AddNamespace(ctx)
		wantResps[i] = catalogapi.NamespaceResponse{Namespace: *ns}
	}

	slices.Reverse(wantResps) // expect order by newest to oldest

	// Page 1
	url := fmt.Sprintf("%s?%s=%d", fixture.NamespacesURL(), paginate.PageSizeQueryParam, pageSize)
	res := testutil.Get[server.ResponseList[catalogapi.NamespaceResponse]](t, url)
	assert.Equal(t, wantResps[:pageSize], res.Data)
	assert.NotEmpty(t, res.NextPageCursor)

	// Page 2
	url = fmt.Sprintf("%s&%s=%s", url, paginate.PageCursorQueryParam, *res.NextPageCursor)
	res = testutil.Get[server.ResponseList[catalogapi.NamespaceResponse]](t, url)
	assert.Equal(t, wantResps[pageSize:], res.Data)
	assert.Nil(t, res.NextPageCursor)
}

func TestHTTPHandler_ListNamespacesDetail(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	numNS := 12
	wantResps := make([]catalogapi.NamespaceDetailResponse, numNS)
	for i := range numNS {
		ns := fixture.AddNamespace(ctx)
		m := fixture.AddMapping(ctx, ns.ID, "STORM")
		wantResps[i] = catalogapi.NamespaceDetailResponse{
			Namespace: *ns,
			Mappings:  []catalog.ServiceClusterMapping{m},
		}
	}
	unmapped := fixture.AddNamespace(ctx)

	slices.Reverse(wantResps) // expect order by newest to oldest

	url := fmt.Sprintf("%s?detail=true&%s=%d", fixture.NamespacesURL(), paginate.PageSizeQueryParam, numNS+1)
	res := testutil.Get[server.ResponseList[catalogapi.NamespaceDetailResponse]](t, url)
	require.Len(t, res.Data, numNS+1)

	// Newest namespace has no mappings and pairs with an empty set.
	assert.Equal(t, *unmapped, res.Data[0].Namespace)
	assert.NotNil(t, res.Data[0].Mappings)
	assert.Empty(t, res.Data[0].Mappings)

	assert.Equal(t, wantResps, res.Data[1:])
}

func TestHTTPHandler_ListNamespacesFiltered(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	flink := catalog.NewNamespace(testutil.RandName(), "FLINK", "GRAPHITE")
	require.NoError(t, fixture.Store.CreateNamespace(ctx, flink))
	storm := catalog.NewNamespace(testutil.RandName(), "STORM", "GRAPHITE")
	require.NoError(t, fixture.Store.CreateNamespace(ctx, storm))

	url := fixture.NamespacesURL() + "?streaming_engine=FLINK"
	res := testutil.Get[server.ResponseList[catalogapi.NamespaceResponse]](t, url)
	require.Len(t, res.Data, 1)
	assert.Equal(t, *flink, res.Data[0].Namespace)

	url = fixture.NamespacesURL() + "?streaming_engine=FLINK&time_series_store=AMBARI_METRICS_COLLECTOR"
	res = testutil.Get[server.ResponseList[catalogapi.NamespaceResponse]](t, url)
	assert.Empty(t, res.Data)
}

func TestHTTPHandler_ListNamespacesUnknownQueryParam(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	res := doRequest(t, http.MethodGet, fixture.NamespacesURL()+"?streaming_engin=STORM", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHTTPHandler_UpdateNamespace(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	req := catalogapi.UpdateNamespaceRequest{
		Name:            testutil.RandName(),
		StreamingEngine: "FLINK",
		TimeSeriesStore: "GRAPHITE",
		Description:     "updated",
	}

	res := testutil.Put[server.Response[catalogapi.NamespaceResponse]](t, fixture.NamespaceURL(ns.ID), req)
	got := res.Data
	assert.Equal(t, ns.ID, got.ID)
	assert.Equal(t, req.Name, got.Name)
	assert.Equal(t, req.StreamingEngine, got.StreamingEngine)

	stored, err := fixture.Store.ReadNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Namespace, *stored)
}

func TestHTTPHandler_UpdateNamespaceCreatesAtID(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	nsID := catalog.NewID[catalog.NamespaceID]()
	req := catalogapi.UpdateNamespaceRequest{
		Name:            testutil.RandName(),
		StreamingEngine: "STORM",
	}

	res := testutil.Put[server.Response[catalogapi.NamespaceResponse]](t, fixture.NamespaceURL(nsID), req)
	assert.Equal(t, nsID, res.Data.ID)

	stored, err := fixture.Store.ReadNamespace(ctx, nsID)
	require.NoError(t, err)
	assert.Equal(t, req.Name, stored.Name)
}

func TestHTTPHandler_DeleteNamespace(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	res := deleteRequest[server.Response[catalogapi.NamespaceResponse]](t, fixture.NamespaceURL(ns.ID))
	assert.Equal(t, *ns, res.Data.Namespace)

	_, err := fixture.Store.ReadNamespace(ctx, ns.ID)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func TestHTTPHandler_DeleteNamespaceReferencedByTopology(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	fixture.AddTopology(ctx, ns.ID)

	res := doRequest(t, http.MethodDelete, fixture.NamespaceURL(ns.ID), nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	_, err := fixture.Store.ReadNamespace(ctx, ns.ID)
	assert.NoError(t, err)
}

func TestHTTPHandler_PutMapping(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	req := catalogapi.PutMappingRequest{
		ServiceName: "STORM",
		ClusterID:   catalog.NewID[catalog.ClusterID]().String(),
	}

	res := testutil.Put[server.Response[catalogapi.MappingResponse]](t, fixture.MappingsURL(ns.ID), req)
	got := res.Data
	assert.Equal(t, ns.ID, got.NamespaceID)
	assert.Equal(t, req.ServiceName, got.ServiceName)
	assert.Equal(t, req.ClusterID, got.ClusterID.String())

	// Idempotent for the same triple.
	res = testutil.Put[server.Response[catalogapi.MappingResponse]](t, fixture.MappingsURL(ns.ID), req)
	assert.Equal(t, got, res.Data)

	mappings, err := fixture.Store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.Len(t, mappings, 1)
}

func TestHTTPHandler_ListMappings(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	m1 := fixture.AddMapping(ctx, ns.ID, "STORM")
	m2 := fixture.AddMapping(ctx, ns.ID, "STORM")
	m3 := fixture.AddMapping(ctx, ns.ID, "KAFKA")

	res := testutil.Get[server.Response[[]catalogapi.MappingResponse]](t, fixture.MappingsURL(ns.ID))
	assert.ElementsMatch(t, mappingResponses(m1, m2, m3), res.Data)

	url := fixture.MappingsURL(ns.ID) + "?service_name=STORM"
	res = testutil.Get[server.Response[[]catalogapi.MappingResponse]](t, url)
	assert.ElementsMatch(t, mappingResponses(m1, m2), res.Data)

	url = fixture.MappingsURL(ns.ID) + "?service_name=UNKNOWN"
	res = testutil.Get[server.Response[[]catalogapi.MappingResponse]](t, url)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestHTTPHandler_ListMappingsNamespaceNotFound(t *testing.T) {
	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()

	res := doRequest(t, http.MethodGet, fixture.MappingsURL(catalog.NewID[catalog.NamespaceID]()), nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTPHandler_ReplaceMappings(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	fixture.AddMapping(ctx, ns.ID, "STORM")
	fixture.AddMapping(ctx, ns.ID, "KAFKA")

	req := catalogapi.ReplaceMappingsRequest{
		Mappings: []catalogapi.MappingPayload{
			{ServiceName: "HDFS", ClusterID: catalog.NewID[catalog.ClusterID]().String()},
			{ServiceName: "HBASE", ClusterID: catalog.NewID[catalog.ClusterID]().String()},
		},
	}

	res := testutil.Post[server.Response[[]catalogapi.MappingResponse]](t, fixture.ReplaceMappingsURL(ns.ID), req)
	require.Len(t, res.Data, 2)

	mappings, err := fixture.Store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	services := []string{mappings[0].ServiceName, mappings[1].ServiceName}
	assert.ElementsMatch(t, []string{"HDFS", "HBASE"}, services)
}

func TestHTTPHandler_DeleteMapping(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	mapping := fixture.AddMapping(ctx, ns.ID, "STORM")

	url := fixture.MappingURL(ns.ID, mapping.ServiceName, mapping.ClusterID)
	res := deleteRequest[server.Response[catalogapi.MappingResponse]](t, url)
	assert.Equal(t, mapping, res.Data.ServiceClusterMapping)

	// Second delete of the same triple is not found.
	errRes := doRequest(t, http.MethodDelete, url, nil)
	assert.Equal(t, http.StatusNotFound, errRes.StatusCode)
}

func TestHTTPHandler_DeleteAllMappings(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	m1 := fixture.AddMapping(ctx, ns.ID, "STORM")
	m2 := fixture.AddMapping(ctx, ns.ID, "KAFKA")

	res := deleteRequest[server.Response[[]catalogapi.MappingResponse]](t, fixture.MappingsURL(ns.ID))
	assert.ElementsMatch(t, mappingResponses(m1, m2), res.Data)

	mappings, err := fixture.Store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestHTTPHandler_CreateTopology(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	req := catalogapi.CreateTopologyRequest{
		NamespaceID: ns.ID.String(),
		Name:        testutil.RandName(),
	}

	res := testutil.Post[server.Response[catalogapi.TopologyResponse]](t, fixture.TopologiesURL(), req)
	got := res.Data
	assert.False(t, got.ID.IsZero())
	assert.Equal(t, ns.ID, got.NamespaceID)
	assert.Equal(t, req.Name, got.Name)
}

func TestHTTPHandler_ListTopologies(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)

	numTops := 15
	pageSize := 10

	wantResps := make([]catalogapi.TopologyResponse, numTops)
	for i := range numTops {
		wantResps[i] = catalogapi.TopologyResponse{Topology: *fixture.AddTopology(ctx, ns.ID)}
	}

	slices.Reverse(wantResps)

	url := fmt.Sprintf("%s?%s=%d", fixture.TopologiesURL(), paginate.PageSizeQueryParam, pageSize)
	res := testutil.Get[server.ResponseList[catalogapi.TopologyResponse]](t, url)
	assert.Equal(t, wantResps[:pageSize], res.Data)
	assert.NotEmpty(t, res.NextPageCursor)

	url = fmt.Sprintf("%s&%s=%s", url, paginate.PageCursorQueryParam, *res.NextPageCursor)
	res = testutil.Get[server.ResponseList[catalogapi.TopologyResponse]](t, url)
	assert.Equal(t, wantResps[pageSize:], res.Data)
	assert.Nil(t, res.NextPageCursor)
}

func TestHTTPHandler_GetTopology(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	top := fixture.AddTopology(ctx, ns.ID)

	res := testutil.Get[server.Response[catalogapi.TopologyResponse]](t, fixture.TopologyURL(top.ID))
	assert.Equal(t, *top, res.Data.Topology)
}

func TestHTTPHandler_DeleteTopology(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	fixture := NewHTTPHandlerTestFixture(t)
	defer fixture.Stop()
	ns := fixture.AddNamespace(ctx)
	top := fixture.AddTopology(ctx, ns.ID)

	res := deleteRequest[server.Response[catalogapi.TopologyResponse]](t, fixture.TopologyURL(top.ID))
	assert.Equal(t, *top, res.Data.Topology)

	_, err := fixture.Store.ReadTopology(ctx, top.ID)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func TestHTTPHandler_NotifiesChanges(t *testing.T) {
	recorder := new(notifierRecorder)
	fixture := NewHTTPHandlerTestFixture(t, catalogapi.WithNotifier[*catalog.Store](recorder))
	defer fixture.Stop()

	req := catalogapi.CreateNamespaceRequest{
		Name:            testutil.RandName(),
		StreamingEngine: "STORM",
	}
	res := testutil.Post[server.Response[catalogapi.NamespaceResponse]](t, fixture.NamespacesURL(), req)

	mappingReq := catalogapi.PutMappingRequest{
		ServiceName: "STORM",
		ClusterID:   catalog.NewID[catalog.ClusterID]().String(),
	}
	testutil.Put[server.Response[catalogapi.MappingResponse]](t, fixture.MappingsURL(res.Data.ID), mappingReq)

	events := recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, recordedEvent{entity: "namespace", op: notif.OpCreated}, events[0])
	assert.Equal(t, recordedEvent{entity: "mapping", op: notif.OpUpdated}, events[1])
}

type recordedEvent struct {
	entity string
	op     notif.Op
}

type notifierRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *notifierRecorder) NamespaceChanged(_ context.Context, op notif.Op, _ *catalog.Namespace) {
	r.record("namespace", op)
}

func (r *notifierRecorder) MappingChanged(_ context.Context, op notif.Op, _ catalog.ServiceClusterMapping) {
	r.record("mapping", op)
}

func (r *notifierRecorder) TopologyChanged(_ context.Context, op notif.Op, _ *catalog.Topology) {
	r.record("topology", op)
}

func (r *notifierRecorder) record(entity string, op notif.Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{entity: entity, op: op})
}

func (r *notifierRecorder) Events() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func mappingResponses(mappings ...catalog.ServiceClusterMapping) []catalogapi.MappingResponse {
	resps := make([]catalogapi.MappingResponse, len(mappings))
	for i, m := range mappings {
		resps[i] = catalogapi.MappingResponse{ServiceClusterMapping: m}
	}
	return resps
}

func deleteRequest[T any](t *testing.T, url string) T {
	t.Helper()
	res := doRequest(t, http.MethodDelete, url, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func doRequest(t *testing.T, method string, url string, body any) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, url, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() {
		res.Body.Close()
	})
	return res
}
