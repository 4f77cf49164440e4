// Package router maps request paths onto handlers through an ordered
// list of full-match regular expressions, built once at startup from
// per-feature route groups.
package router

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/session"
	"github.com/sdfgeoff/ndscore/internal/storage"
)

// RequestContext bundles everything a handler may touch. It is built
// per request and never mutated by handlers.
type RequestContext struct {
	Store    storage.Store
	Sessions *session.Manager
	Request  *httpd.Request
	// Session is nil for anonymous callers.
	Session  *storage.SessionData
	Captures map[string]string
	Log      *zap.SugaredLogger
}

// Handler is a route endpoint. A returned error means an internal
// fault, not a client-visible condition; client-visible failures are
// regular responses.
type Handler func(ctx context.Context, rc *RequestContext) (httpd.Response, error)

// Route pairs a compiled pattern with its handler.
type Route struct {
	pattern *regexp.Regexp
	handler Handler
}

// NewRoute compiles a pattern that must match the whole request path.
// Named capture groups become the handler's Captures.
func NewRoute(pattern string, handler Handler) Route {
	return Route{
		pattern: regexp.MustCompile(`\A` + pattern + `\z`),
		handler: handler,
	}
}

// Registry is the route table plus the shared dependencies handed to
// every handler.
type Registry struct {
	store    storage.Store
	sessions *session.Manager
	static   fs.FS
	log      *zap.SugaredLogger
	routes   []Route
}

// NewRegistry composes route groups in order. Earlier groups, and
// earlier routes within a group, win ties.
func NewRegistry(store storage.Store, sessions *session.Manager, static fs.FS, log *zap.SugaredLogger, groups ...[]Route) *Registry {
	r := &Registry{
		store:    store,
		sessions: sessions,
		static:   static,
		log:      log,
	}
	for _, group := range groups {
		for _, route := range group {
			log.Debugw("registering_route", "route", route.pattern.String())
			r.routes = append(r.routes, route)
		}
	}
	return r
}

// Handle resolves the caller's session, dispatches, and converts any
// handler failure into the internal-fault page. It satisfies
// httpd.Handler.
func (r *Registry) Handle(ctx context.Context, req *httpd.Request) httpd.Response {
	sess := r.sessions.Resolve(ctx, req)

	resp, err := r.dispatch(ctx, req, sess)
	if err == nil {
		return resp
	}
	r.log.Errorw("handler_failed", "url", req.URL, "error", err)

	fault := &httpd.Request{
		Method: httpd.MethodGet,
		URL:    "/500.html",
		Path:   "/500.html",
		Query:  map[string]string{},
	}
	resp, err = r.dispatch(ctx, fault, sess)
	if err != nil {
		r.log.Errorw("fault_page_failed", "error", err)
		return httpd.Text(500, "internal fault")
	}
	return resp
}

func (r *Registry) dispatch(ctx context.Context, req *httpd.Request, sess *storage.SessionData) (resp httpd.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	for _, route := range r.routes {
		match := route.pattern.FindStringSubmatch(req.Path)
		if match == nil {
			continue
		}

		captures := make(map[string]string)
		for i, name := range route.pattern.SubexpNames() {
			if i > 0 && name != "" {
				captures[name] = match[i]
			}
		}
		return route.handler(ctx, &RequestContext{
			Store:    r.store,
			Sessions: r.sessions,
			Request:  req,
			Session:  sess,
			Captures: captures,
			Log:      r.log,
		})
	}

	if resp, ok := r.serveStatic(req.Path); ok {
		return resp, nil
	}
	return httpd.Redirect("/404.html"), nil
}

// serveStatic serves top-level files out of the static directory. It
// only runs after every dynamic route has been tried.
func (r *Registry) serveStatic(path string) (httpd.Response, bool) {
	name := strings.TrimPrefix(path, "/")
	if name == "" || strings.Contains(name, "/") {
		return httpd.Response{}, false
	}

	data, err := fs.ReadFile(r.static, name)
	if err != nil {
		return httpd.Response{}, false
	}
	return httpd.Response{
		StatusCode: 200,
		Headers:    []httpd.Header{{Name: "Cache-Control", Value: "max-age=3600"}},
		Body:       data,
	}, true
}
