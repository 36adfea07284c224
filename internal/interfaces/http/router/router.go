// Package router assembles the gin engine: the global middleware chain, the
// versioned API resources and the operational endpoints.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// apiVersion prefixes every caller-facing route
const apiVersion = "v1"

// Resource is one path prefix of the API together with the caller check that
// guards it. Nested resources inherit the guard.
type Resource struct {
	prefix string
	guard  []gin.HandlerFunc
	routes []route
	nested []*Resource
}

type route struct {
	method string
	path   string
	handle gin.HandlerFunc
}

func newResource(prefix string, guard ...gin.HandlerFunc) *Resource {
	return &Resource{prefix: prefix, guard: guard}
}

func (r *Resource) add(method, p string, h gin.HandlerFunc) *Resource {
	r.routes = append(r.routes, route{method: method, path: p, handle: h})
	return r
}

func (r *Resource) GET(p string, h gin.HandlerFunc) *Resource { return r.add(http.MethodGet, p, h) }
func (r *Resource) POST(p string, h gin.HandlerFunc) *Resource { return r.add(http.MethodPost, p, h) }
func (r *Resource) PUT(p string, h gin.HandlerFunc) *Resource { return r.add(http.MethodPut, p, h) }
func (r *Resource) DELETE(p string, h gin.HandlerFunc) *Resource { return r.add(http.MethodDelete, p, h) }

// Nest opens a child resource below r
func (r *Resource) Nest(prefix string) *Resource {
	child := newResource(prefix)
	r.nested = append(r.nested, child)
	return child
}

func (r *Resource) mount(rg *gin.RouterGroup) {
	group := rg.Group(r.prefix, r.guard...)
	for _, rt := range r.routes {
		group.Handle(rt.method, rt.path, rt.handle)
	}
	for _, child := range r.nested {
		child.mount(group)
	}
}

// Endpoints lists "METHOD /path" for every route of r and its children
func (r *Resource) Endpoints() []string {
	return r.endpoints("")
}

func (r *Resource) endpoints(parent string) []string {
	base := path.Join(parent, r.prefix)
	var out []string
	for _, rt := range r.routes {
		p := base
		if rt.path != "" {
			p = path.Join(base, rt.path)
		}
		out = append(out, rt.method+" "+p)
	}
	for _, child := range r.nested {
		out = append(out, child.endpoints(base)...)
	}
	return out
}

// mountAPI registers resources under /api/<version>. chain runs on every API
// route ahead of the resource guards; operational routes registered directly
// on the engine never see it.
func mountAPI(engine *gin.Engine, chain []gin.HandlerFunc, resources ...*Resource) {
	api := engine.Group("/api/"+apiVersion, chain...)
	for _, res := range resources {
		res.mount(api)
	}
}
