package api

import "github.com/labstack/echo/v4"

// Router bundles the REST and WebSocket handlers behind the single route
// registration interface the HTTP server accepts.
type Router struct {
	rest *SetupsEchoHandler
	ws   *StreamWSHandler
}

func NewRouter(rest *SetupsEchoHandler, ws *StreamWSHandler) *Router {
	return &Router{rest: rest, ws: ws}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	if r.rest != nil {
		r.rest.RegisterRoutes(e)
	}
	if r.ws != nil {
		r.ws.RegisterRoutes(e)
	}
}
