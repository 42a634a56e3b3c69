package catalogapi

import (
	"context"

	"github.com/joshjon/kit/paginate"
	"github.com/labstack/echo/v4"

	"github.com/rivulet-sh/rivulet/catalog"
)

type Lister interface {
	ListNamespaces(ctx context.Context, fltr catalog.NamespaceFilter, page paginate.PageFilter[catalog.NamespaceID]) ([]*catalog.Namespace, error)
	ListTopologies(ctx context.Context, page paginate.PageFilter[catalog.TopologyID]) ([]*catalog.Topology, error)
}

func PaginateNamespaces(ctx context.Context, c echo.Context, store Lister, fltr catalog.NamespaceFilter) ([]*catalog.Namespace, string, error) {
	cursorGetter := func(item *catalog.Namespace) string {
		return item.ID.String()
	}
	lister := func(page paginate.PageFilter[catalog.NamespaceID]) ([]*catalog.Namespace, error) {
		return store.ListNamespaces(ctx, fltr, page)
	}
	return paginate.Paginate(c, paginate.Config[*catalog.Namespace, catalog.NamespaceID]{
		CursorParser: paginate.IDCursorParser[catalog.NamespaceID](),
		CursorGetter: cursorGetter,
		Lister:       lister,
	})
}

func PaginateTopologies(ctx context.Context, c echo.Context, store Lister) ([]*catalog.Topology, string, error) {
	cursorGetter := func(item *catalog.Topology) string {
		return item.ID.String()
	}
	lister := func(page paginate.PageFilter[catalog.TopologyID]) ([]*catalog.Topology, error) {
		return store.ListTopologies(ctx, page)
	}
	return paginate.Paginate(c, paginate.Config[*catalog.Topology, catalog.TopologyID]{
		CursorParser: paginate.IDCursorParser[catalog.TopologyID](),
		CursorGetter: cursorGetter,
		Lister:       lister,
	})
}
