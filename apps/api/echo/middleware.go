package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core/cause"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// organizerOrAdminMiddleware loads the cause in `:id` into the context under
// "object" and lets through its organizer or an admin. Everyone else gets a 404.
func organizerOrAdminMiddleware(svc *cause.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			c, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == cause.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding cause by ID")
			}

			if c.OrganizerID == claims.Subject || claims.IsAdmin {
				ctx.Set("object", c)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}
