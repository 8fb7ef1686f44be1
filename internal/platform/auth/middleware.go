package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	UserRoleKey   contextKey = "user_role"
	FullNameKey   contextKey = "user_full_name"
	CaseNumberKey contextKey = "user_case_number"
)

// Session is the authenticated identity attached to a request. Views read
// it from the request context instead of ambient client-side state.
type Session struct {
	UserID     string
	Role       string
	FullName   string
	CaseNumber string
}

// Middleware validates the bearer token on every request and stores the
// resulting session on the request context. An optional skipper lets
// public paths (health check, sign-up, sign-in) through untouched.
func Middleware(issuer *TokenIssuer, skippers ...func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(skippers) > 0 && skippers[0] != nil && skippers[0](c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, FullNameKey, claims.FullName)
			ctx = context.WithValue(ctx, CaseNumberKey, claims.CaseNumber)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func SessionFromContext(ctx context.Context) Session {
	return Session{
		UserID:     UserIDFromContext(ctx),
		Role:       RoleFromContext(ctx),
		FullName:   FullNameFromContext(ctx),
		CaseNumber: CaseNumberFromContext(ctx),
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func FullNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(FullNameKey).(string)
	return name
}

func CaseNumberFromContext(ctx context.Context) string {
	cn, _ := ctx.Value(CaseNumberKey).(string)
	return cn
}
