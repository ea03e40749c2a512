package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on the versioned API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// Route describes one mounted endpoint.
type Route struct {
	Method  string
	Path    string
	Guarded bool
}

// ResourceGroup collects the routes of one resource. Reads are public;
// writes run behind the group's guard when one is set.
type ResourceGroup struct {
	name   string
	prefix string
	guard  gin.HandlerFunc
	routes []resourceRoute
}

type resourceRoute struct {
	Route
	handlers []gin.HandlerFunc
}

func NewResourceGroup(name, prefix string) *ResourceGroup {
	return &ResourceGroup{name: name, prefix: prefix}
}

// Guard sets the handler placed in front of every write route.
func (g *ResourceGroup) Guard(guard gin.HandlerFunc) *ResourceGroup {
	g.guard = guard
	return g
}

// Read adds a GET route.
func (g *ResourceGroup) Read(path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	return g.add(http.MethodGet, path, false, handlers)
}

// Write adds a mutating route.
func (g *ResourceGroup) Write(method, path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	return g.add(method, path, true, handlers)
}

func (g *ResourceGroup) add(method, path string, write bool, handlers []gin.HandlerFunc) *ResourceGroup {
	g.routes = append(g.routes, resourceRoute{
		Route:    Route{Method: method, Path: g.prefix + path, Guarded: write},
		handlers: handlers,
	})
	return g
}

func (g *ResourceGroup) RegisterRoutes(rg *gin.RouterGroup) {
	for _, rt := range g.routes {
		chain := rt.handlers
		if rt.Guarded && g.guard != nil {
			chain = append([]gin.HandlerFunc{g.guard}, chain...)
		}
		rg.Handle(rt.Method, rt.Path, chain...)
	}
}

func (g *ResourceGroup) Name() string { return g.name }

// Routes lists the group's routes relative to the API root.
func (g *ResourceGroup) Routes() []Route {
	out := make([]Route, len(g.routes))
	for i, rt := range g.routes {
		out[i] = rt.Route
	}
	return out
}
