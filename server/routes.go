package server

import "github.com/jrsteele09/carpool-client/internal/metrics"

const (
	RouteMetrics           = "/metrics"
	RouteWorkerStatus      = "/worker/status"
	RouteWorkerMessages    = "/worker/messages"
	RouteWorkerUpdate      = "/worker/update"
	RoutePush              = "/push"
	RouteNotifications     = "/notifications"
	RouteNotificationClick = "/notifications/{id}/click"
	routeApp               = "/"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteMetrics, ChainMiddleware(metrics.Handler().ServeHTTP, s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteWorkerStatus, ChainMiddleware(s.WorkerStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteWorkerMessages, ChainMiddleware(s.WorkerMessageHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteWorkerUpdate, ChainMiddleware(s.WorkerUpdateHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("POST "+RoutePush, ChainMiddleware(s.PushHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteNotifications, ChainMiddleware(s.NotificationsHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteNotificationClick, ChainMiddleware(s.NotificationClickHandler(), s.APIMiddleware()...))

	// Everything else is app traffic for the worker's fetch handler.
	s.RegisterPrefixHandler(routeApp, ChainMiddleware(s.host.ServeHTTP, s.FetchMiddleware()...))
}
