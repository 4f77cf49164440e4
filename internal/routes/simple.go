package routes

import (
	"context"

	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/router"
)

// Simple returns the root redirect and the status pages.
func Simple() []router.Route {
	return []router.Route{
		router.NewRoute("/", handleRoot),
		router.NewRoute("/404.html", handleNotFound),
		router.NewRoute("/403.html", handleForbidden),
		router.NewRoute("/500.html", handleFault),
	}
}

func handleRoot(_ context.Context, _ *router.RequestContext) (httpd.Response, error) {
	return httpd.Redirect("/index.html"), nil
}

func handleNotFound(_ context.Context, rc *router.RequestContext) (httpd.Response, error) {
	return page(404, wrapContent(rc, "RESOURCE MISSING", fragment("404.html"))), nil
}

func handleForbidden(_ context.Context, rc *router.RequestContext) (httpd.Response, error) {
	return page(403, wrapContent(rc, "ACCESS DENIED", fragment("403.html"))), nil
}

func handleFault(_ context.Context, rc *router.RequestContext) (httpd.Response, error) {
	return page(500, wrapContent(rc, "INTERNAL FAULT", fragment("500.html"))), nil
}
