package config

type RoutesConfig interface {
	GetPublicRoutes() []string
	GetDebtRoutes() []string
	GetLoginRoute() string
	GetHomeRoute() string
	GetDebtRoute() string
	GetEmailVerifyRoute() string
	GetCompleteProfileRoute() string
}

type Routes struct{}

var _ RoutesConfig = Routes{}

func (Routes) GetPublicRoutes() []string {
	return GetEnvList("CARPOOL_PUBLIC_ROUTES", []string{
		"/",
		"/login",
		"/register",
		"/email-verify",
		"/complete-profile",
		"/forgot-password",
		"/reset-password",
	})
}

// GetDebtRoutes lists the routes a user with debt may still visit.
func (Routes) GetDebtRoutes() []string {
	return []string{"/debt", "/logout"}
}

func (Routes) GetLoginRoute() string {
	return "/login"
}

func (Routes) GetHomeRoute() string {
	return "/home"
}

func (Routes) GetDebtRoute() string {
	return "/debt"
}

func (Routes) GetEmailVerifyRoute() string {
	return "/email-verify"
}

func (Routes) GetCompleteProfileRoute() string {
	return "/complete-profile"
}
