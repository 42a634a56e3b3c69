package catalogapi

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/paginate"
	"github.com/joshjon/kit/ref"
	"github.com/joshjon/kit/server"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/logkey"
	"github.com/rivulet-sh/rivulet/notif"
)

const (
	PathParamNamespaceID   = "namespace_id"
	PathParamNamespaceName = "namespace_name"
	PathParamServiceName   = "service_name"
	PathParamClusterID     = "cluster_id"
	PathParamTopologyID    = "topology_id"
)

// Notifier publishes catalog change events. Implementations must never fail
// the calling mutation.
type Notifier interface {
	NamespaceChanged(ctx context.Context, op notif.Op, namespace *catalog.Namespace)
	MappingChanged(ctx context.Context, op notif.Op, mapping catalog.ServiceClusterMapping)
	TopologyChanged(ctx context.Context, op notif.Op, topology *catalog.Topology)
}

// HTTPHandlerOption configures a HTTPHandler.
type HTTPHandlerOption[S catalog.Storer] func(handler *HTTPHandler[S])

// WithNotifier sets a Notifier on the handler to enable change events.
func WithNotifier[S catalog.Storer](notifier Notifier) HTTPHandlerOption[S] {
	return func(handler *HTTPHandler[S]) {
		handler.notifier = notifier
	}
}

// HTTPHandler handles catalog HTTP requests.
type HTTPHandler[S catalog.Storer] struct {
	store    catalog.TxStorer[S]
	notifier Notifier
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler[S catalog.Storer](store catalog.TxStorer[S], opts ...HTTPHandlerOption[S]) *HTTPHandler[S] {
	h := &HTTPHandler[S]{
		store:    store,
		notifier: noopNotifier{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the HTTPHandler endpoints to the provided Echo router group.
func (h *HTTPHandler[S]) Register(g *echo.Group) {
	namespaces := g.Group("/namespaces")
	namespaces.POST("", h.CreateNamespace)
	namespaces.GET("", h.ListNamespaces)
	namespaces.GET(fmt.Sprintf("/name/:%s", PathParamNamespaceName), h.GetNamespaceByName)

	namespace := namespaces.Group(fmt.Sprintf("/:%s", PathParamNamespaceID))
	namespace.GET("", h.GetNamespace)
	namespace.PUT("", h.UpdateNamespace)
	namespace.DELETE("", h.DeleteNamespace)

	mappings := namespace.Group("/mappings")
	mappings.GET("", h.ListMappings)
	mappings.PUT("", h.PutMapping)
	mappings.POST("/replace", h.ReplaceMappings)
	mappings.DELETE("", h.DeleteAllMappings)
	mappings.DELETE(fmt.Sprintf("/:%s/clusters/:%s", PathParamServiceName, PathParamClusterID), h.DeleteMapping)

	topologies := g.Group("/topologies")
	topologies.POST("", h.CreateTopology)
	topologies.GET("", h.ListTopologies)

	topology := topologies.Group(fmt.Sprintf("/:%s", PathParamTopologyID))
	topology.GET("", h.GetTopology)
	topology.DELETE("", h.DeleteTopology)
}

// CreateNamespace handles POST requests to create a Namespace.
func (h *HTTPHandler[S]) CreateNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[CreateNamespaceRequest](c)
	if err != nil {
		return err
	}

	ns := catalog.NewNamespace(req.Name, req.StreamingEngine, req.TimeSeriesStore)
	ns.Description = req.Description
	c.Set(logkey.NamespaceID, ns.ID)

	if err = h.store.CreateNamespace(ctx, ns); err != nil {
		return err
	}
	h.notifier.NamespaceChanged(ctx, notif.OpCreated, ns)

	return server.SetResponse(c, http.StatusCreated, NamespaceResponse{
		Namespace: *ns,
	})
}

// ListNamespaces handles GET requests to list Namespaces. A detail flag
// switches the item shape to namespaces paired with their mappings.
func (h *HTTPHandler[S]) ListNamespaces(c echo.Context) error {
	ctx := c.Request().Context()

	err := checkKnownQueryParams(c,
		"streaming_engine",
		"time_series_store",
		"detail",
		paginate.PageSizeQueryParam,
		paginate.PageCursorQueryParam,
	)
	if err != nil {
		return err
	}

	req, err := server.BindRequest[ListNamespacesRequest](c)
	if err != nil {
		return err
	}

	var fltr catalog.NamespaceFilter
	if req.StreamingEngine != "" {
		fltr.StreamingEngine = ref.Ptr(req.StreamingEngine)
	}
	if req.TimeSeriesStore != "" {
		fltr.TimeSeriesStore = ref.Ptr(req.TimeSeriesStore)
	}

	namespaces, cursor, err := PaginateNamespaces(ctx, c, h.store, fltr)
	if err != nil {
		return err
	}

	if !req.Detail {
		nsResps := make([]NamespaceResponse, len(namespaces))
		for i, ns := range namespaces {
			nsResps[i] = NamespaceResponse{
				Namespace: *ns,
			}
		}
		return server.SetResponseList(c, http.StatusOK, nsResps, cursor)
	}

	errg := new(errgroup.Group)
	sem := make(chan struct{}, 10)

	detailResps := make([]NamespaceDetailResponse, len(namespaces))
	for i, ns := range namespaces {
		sem <- struct{}{}
		errg.Go(func() error {
			defer func() { <-sem }()
			detail, err := h.withMappings(ctx, ns)
			if err != nil {
				return err
			}
			detailResps[i] = detail
			return nil
		})
	}

	if err = errg.Wait(); err != nil {
		return err
	}

	return server.SetResponseList(c, http.StatusOK, detailResps, cursor)
}

// GetNamespace handles GET requests to read a Namespace by ID.
func (h *HTTPHandler[S]) GetNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	if err := checkKnownQueryParams(c, "detail"); err != nil {
		return err
	}

	req, err := server.BindRequest[GetNamespaceRequest](c)
	if err != nil {
		return err
	}

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}

	ns, err := h.store.ReadNamespace(ctx, nsID)
	if err != nil {
		return err
	}

	if req.Detail {
		detail, err := h.withMappings(ctx, ns)
		if err != nil {
			return err
		}
		return server.SetResponse(c, http.StatusOK, detail)
	}

	return server.SetResponse(c, http.StatusOK, NamespaceResponse{
		Namespace: *ns,
	})
}

// GetNamespaceByName handles GET requests to read a Namespace by name.
func (h *HTTPHandler[S]) GetNamespaceByName(c echo.Context) error {
	ctx := c.Request().Context()

	if err := checkKnownQueryParams(c, "detail"); err != nil {
		return err
	}

	req, err := server.BindRequest[GetNamespaceByNameRequest](c)
	if err != nil {
		return err
	}
	c.Set(logkey.NamespaceName, req.Name)

	ns, err := h.store.ReadNamespaceByName(ctx, req.Name)
	if err != nil {
		return err
	}
	c.Set(logkey.NamespaceID, ns.ID)

	if req.Detail {
		detail, err := h.withMappings(ctx, ns)
		if err != nil {
			return err
		}
		return server.SetResponse(c, http.StatusOK, detail)
	}

	return server.SetResponse(c, http.StatusOK, NamespaceResponse{
		Namespace: *ns,
	})
}

// UpdateNamespace handles PUT requests to create or replace the Namespace
// stored at the given ID.
func (h *HTTPHandler[S]) UpdateNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[UpdateNamespaceRequest](c)
	if err != nil {
		return err
	}

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}

	ns := &catalog.Namespace{
		ID:              nsID,
		Name:            req.Name,
		StreamingEngine: req.StreamingEngine,
		TimeSeriesStore: req.TimeSeriesStore,
		Description:     req.Description,
	}

	if err = h.store.PutNamespace(ctx, ns); err != nil {
		return err
	}
	h.notifier.NamespaceChanged(ctx, notif.OpUpdated, ns)

	return server.SetResponse(c, http.StatusOK, NamespaceResponse{
		Namespace: *ns,
	})
}

// DeleteNamespace handles DELETE requests to delete a Namespace. The delete
// is refused while any topology references the namespace. Responds with the
// removed Namespace.
func (h *HTTPHandler[S]) DeleteNamespace(c echo.Context) error {
	ctx := c.Request().Context()

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}

	removed, err := h.store.DeleteNamespace(ctx, nsID)
	if err != nil {
		return err
	}
	h.notifier.NamespaceChanged(ctx, notif.OpDeleted, removed)

	return server.SetResponse(c, http.StatusOK, NamespaceResponse{
		Namespace: *removed,
	})
}

// ListMappings handles GET requests to list the mappings of a Namespace,
// optionally narrowed to one service.
func (h *HTTPHandler[S]) ListMappings(c echo.Context) error {
	ctx := c.Request().Context()

	if err := checkKnownQueryParams(c, "service_name"); err != nil {
		return err
	}

	req, err := server.BindRequest[ListMappingsRequest](c)
	if err != nil {
		return err
	}

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}

	var mappings []catalog.ServiceClusterMapping
	if req.ServiceName != "" {
		c.Set(logkey.ServiceName, req.ServiceName)
		mappings, err = h.store.ListServiceClusterMappingsByService(ctx, nsID, req.ServiceName)
	} else {
		mappings, err = h.store.ListServiceClusterMappings(ctx, nsID)
	}
	if err != nil {
		return err
	}

	return server.SetResponse(c, http.StatusOK, mappingResponses(mappings))
}

// PutMapping handles PUT requests to create or replace one mapping.
func (h *HTTPHandler[S]) PutMapping(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[PutMappingRequest](c)
	if err != nil {
		return err
	}

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}

	mapping := catalog.ServiceClusterMapping{
		NamespaceID: nsID,
		ServiceName: req.ServiceName,
		ClusterID:   catalog.MustParseID[catalog.ClusterID](req.ClusterID),
	}
	c.Set(logkey.ServiceName, mapping.ServiceName)
	c.Set(logkey.ClusterID, mapping.ClusterID)

	put, err := h.store.PutServiceClusterMapping(ctx, mapping)
	if err != nil {
		return err
	}
	h.notifier.MappingChanged(ctx, notif.OpUpdated, put)

	return server.SetResponse(c, http.StatusOK, MappingResponse{
		ServiceClusterMapping: put,
	})
}

// ReplaceMappings handles POST requests to replace the full mapping set of a
// Namespace. Responds with the new set.
func (h *HTTPHandler[S]) ReplaceMappings(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[ReplaceMappingsRequest](c)
	if err != nil {
		return err
	}

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}

	mappings := make([]catalog.ServiceClusterMapping, len(req.Mappings))
	for i, m := range req.Mappings {
		mappings[i] = catalog.ServiceClusterMapping{
			NamespaceID: nsID,
			ServiceName: m.ServiceName,
			ClusterID:   catalog.MustParseID[catalog.ClusterID](m.ClusterID),
		}
	}

	replaced, err := h.store.ReplaceServiceClusterMappings(ctx, nsID, mappings)
	if err != nil {
		return err
	}
	for _, m := range replaced {
		h.notifier.MappingChanged(ctx, notif.OpUpdated, m)
	}

	return server.SetResponse(c, http.StatusOK, mappingResponses(replaced))
}

// DeleteMapping handles DELETE requests to remove one mapping. Responds with
// the removed mapping.
func (h *HTTPHandler[S]) DeleteMapping(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[DeleteMappingRequest](c)
	if err != nil {
		return err
	}

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}
	clusterID := catalog.MustParseID[catalog.ClusterID](req.ClusterID)
	c.Set(logkey.ServiceName, req.ServiceName)
	c.Set(logkey.ClusterID, clusterID)

	removed, err := h.store.DeleteServiceClusterMapping(ctx, nsID, req.ServiceName, clusterID)
	if err != nil {
		return err
	}
	h.notifier.MappingChanged(ctx, notif.OpDeleted, removed)

	return server.SetResponse(c, http.StatusOK, MappingResponse{
		ServiceClusterMapping: removed,
	})
}

// DeleteAllMappings handles DELETE requests to remove every mapping of a
// Namespace. Responds with the removed set.
func (h *HTTPHandler[S]) DeleteAllMappings(c echo.Context) error {
	ctx := c.Request().Context()

	nsID, err := NamespaceIDFromContext(c)
	if err != nil {
		return err
	}

	removed, err := h.store.DeleteAllServiceClusterMappings(ctx, nsID)
	if err != nil {
		return err
	}
	for _, m := range removed {
		h.notifier.MappingChanged(ctx, notif.OpDeleted, m)
	}

	return server.SetResponse(c, http.StatusOK, mappingResponses(removed))
}

// CreateTopology handles POST requests to register a Topology.
func (h *HTTPHandler[S]) CreateTopology(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[CreateTopologyRequest](c)
	if err != nil {
		return err
	}

	nsID := catalog.MustParseID[catalog.NamespaceID](req.NamespaceID)
	top := catalog.NewTopology(nsID, req.Name)
	c.Set(logkey.NamespaceID, nsID)
	c.Set(logkey.TopologyID, top.ID)

	if err = h.store.CreateTopology(ctx, top); err != nil {
		return err
	}
	h.notifier.TopologyChanged(ctx, notif.OpCreated, top)

	return server.SetResponse(c, http.StatusCreated, TopologyResponse{
		Topology: *top,
	})
}

// ListTopologies handles GET requests to list Topologies.
func (h *HTTPHandler[S]) ListTopologies(c echo.Context) error {
	ctx := c.Request().Context()

	err := checkKnownQueryParams(c, paginate.PageSizeQueryParam, paginate.PageCursorQueryParam)
	if err != nil {
		return err
	}

	topologies, cursor, err := PaginateTopologies(ctx, c, h.store)
	if err != nil {
		return err
	}

	topResps := make([]TopologyResponse, len(topologies))
	for i, top := range topologies {
		topResps[i] = TopologyResponse{
			Topology: *top,
		}
	}

	return server.SetResponseList(c, http.StatusOK, topResps, cursor)
}

// GetTopology handles GET requests to read a Topology by ID.
func (h *HTTPHandler[S]) GetTopology(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[GetTopologyRequest](c)
	if err != nil {
		return err
	}

	topID := catalog.MustParseID[catalog.TopologyID](req.ID)
	c.Set(logkey.TopologyID, topID)

	top, err := h.store.ReadTopology(ctx, topID)
	if err != nil {
		return err
	}

	return server.SetResponse(c, http.StatusOK, TopologyResponse{
		Topology: *top,
	})
}

// DeleteTopology handles DELETE requests to delete a Topology. Responds with
// the removed Topology.
func (h *HTTPHandler[S]) DeleteTopology(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := server.BindRequest[DeleteTopologyRequest](c)
	if err != nil {
		return err
	}

	topID := catalog.MustParseID[catalog.TopologyID](req.ID)
	c.Set(logkey.TopologyID, topID)

	top, err := h.store.ReadTopology(ctx, topID)
	if err != nil {
		return err
	}

	if err = h.store.DeleteTopology(ctx, topID); err != nil {
		return err
	}
	h.notifier.TopologyChanged(ctx, notif.OpDeleted, top)

	return server.SetResponse(c, http.StatusOK, TopologyResponse{
		Topology: *top,
	})
}

// withMappings pairs a namespace with its mappings.
func (h *HTTPHandler[S]) withMappings(ctx context.Context, ns *catalog.Namespace) (NamespaceDetailResponse, error) {
	mappings, err := h.store.ListServiceClusterMappings(ctx, ns.ID)
	if err != nil {
		return NamespaceDetailResponse{}, err
	}
	return NamespaceDetailResponse{
		Namespace: *ns,
		Mappings:  mappings,
	}, nil
}

// checkKnownQueryParams rejects requests carrying query parameters outside
// the known set. Echo silently drops unknown query parameters when binding,
// which would otherwise turn a misspelled filter into an unfiltered request.
func checkKnownQueryParams(c echo.Context, known ...string) error {
	for param := range c.QueryParams() {
		if !slices.Contains(known, param) {
			return errtag.NewTagged[errtag.InvalidArgument](
				fmt.Sprintf("unknown query parameter %q", param),
				errtag.WithMsg(fmt.Sprintf("Unknown query parameter: %s", param)),
			)
		}
	}
	return nil
}

func mappingResponses(mappings []catalog.ServiceClusterMapping) []MappingResponse {
	resps := make([]MappingResponse, len(mappings))
	for i, m := range mappings {
		resps[i] = MappingResponse{
			ServiceClusterMapping: m,
		}
	}
	return resps
}

type noopNotifier struct{}

func (noopNotifier) NamespaceChanged(context.Context, notif.Op, *catalog.Namespace) {}

func (noopNotifier) MappingChanged(context.Context, notif.Op, catalog.ServiceClusterMapping) {}

func (noopNotifier) TopologyChanged(context.Context, notif.Op, *catalog.Topology) {}
