package catalogapi

import (
	"fmt"
	"strings"

	"github.com/cohesivestack/valgo"
	"github.com/joshjon/kit/errtag"
	"github.com/labstack/echo/v4"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/logkey"
)

const namespaceContextKey = "req_namespace"

// NamespaceContextMiddleware extracts the NamespaceID from the request path
// and sets it in the handler context.
func NamespaceContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isNamespacePath(c) {
				return next(c) // skip if path is not scoped to a namespace
			}
			nsIDStr := c.Param(PathParamNamespaceID)
			if err := valgo.In("params", valgo.Is(IDValidator[catalog.NamespaceID](nsIDStr, "namespace_id"))).Error(); err != nil {
				return err
			}
			nsID := catalog.MustParseID[catalog.NamespaceID](nsIDStr)
			c.Set(namespaceContextKey, nsID)
			c.Set(logkey.NamespaceID, nsID)
			return next(c)
		}
	}
}

func NamespaceIDFromContext(c echo.Context) (catalog.NamespaceID, error) {
	nsID, ok := c.Get(namespaceContextKey).(catalog.NamespaceID)
	if !ok {
		return catalog.NamespaceID{}, errtag.NewTagged[errtag.InvalidArgument]("namespace id not found in context", errtag.WithMsg("Namespace ID not found in request path"))
	}
	return nsID, nil
}

func isNamespacePath(c echo.Context) bool {
	return strings.Contains(c.Path(), fmt.Sprintf("/namespaces/:%s", PathParamNamespaceID))
}
