package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// tenantMiddleware scopes the request to the college of the authenticated user.
func tenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.CollegeID == "" {
			return errNoCollege
		}
		ctx.Set(contextCollegeKey, claims.CollegeID)
		return next(ctx)
	}
}

// adminMiddleware lets admins through, only those holding one of roles when provided.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// rolesMiddleware lets through users holding a role starting with one of prefixes (eg. "admin:").
func rolesMiddleware(prefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range claims.Roles {
				for _, prefix := range prefixes {
					if strings.HasPrefix(role, prefix) {
						return next(ctx)
					}
				}
			}
			return errHttpForbidden
		}
	}
}
