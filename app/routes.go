package app

import (
	"strings"

	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/core/registry"
)

// RouteLister lists bound routes.
type RouteLister interface {
	Routes() []registry.RouteInfo
}

// Routes answers with the routing table, optionally filtered by the method
// parameter.
type Routes struct {
	lister RouteLister
}

// NewRoutes creates a routes operation over lister.
func NewRoutes(lister RouteLister) *Routes {
	return &Routes{lister: lister}
}

// Execute serves a request.
func (r *Routes) Execute(req api.Request, rsp *api.Response) error {
	method := strings.ToUpper(req.Param("method"))

	routes := make([]registry.RouteInfo, 0)
	for _, ri := range r.lister.Routes() {
		if method == "" || ri.Method == method {
			routes = append(routes, ri)
		}
	}
	rsp.Add("routes", routes)
	rsp.Add("count", len(routes))
	return nil
}
