package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication. These are the
// health check and the sign-up/sign-in endpoints, which must be reachable
// before a session token exists.
var publicPaths = map[string]bool{
	"/health":             true,
	"/api/v1/auth/signup": true,
	"/api/v1/auth/signin": true,
}

// AuthSkipper returns true for requests whose path should skip
// authentication. Pass it as the skipper on Middleware so the health check
// and auth endpoints stay reachable without a bearer token.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
