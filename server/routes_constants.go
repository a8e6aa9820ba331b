package server

import "github.com/jrsteele09/go-property-auth/auth"

// Route path constants
const (
	// Auth routes, shared with the client
	RouteAuthLogin          = auth.PathLogin
	RouteAuthRegister       = auth.PathRegister
	RouteAuthLogout         = auth.PathLogout
	RouteAuthMe             = auth.PathMe
	RouteAuthUpdateDetails  = auth.PathUpdateDetails
	RouteAuthUpdatePassword = auth.PathUpdatePassword
	RouteAuthForgotPassword = auth.PathForgotPassword
	RouteAuthResetPassword  = auth.PathResetPassword + "{token}"

	// API routes
	RouteAPIProperties = "/api/properties"

	// Operational routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/health"
)
