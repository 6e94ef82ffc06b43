package api

// Backend route paths, relative to the configured base URL
const (
	RouteMe           = "/api/me"
	RouteUsers        = "/api/users"
	RouteUserDebt     = "/api/users/debt"
	RouteUserFile     = "/api/users/file"
	RouteAuthLogin    = "/api/auth/login"
	RouteAuthGoogle   = "/api/auth/google"
	RouteAuthLogout   = "/api/auth/logout"
	RouteDriverTrips  = "/api/trips/driver"
	RouteRealtimeBase = "/api/ws"
)
