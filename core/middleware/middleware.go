package middleware

import (
	"net/http"
	"strings"

	"calsync-api/core/errors"
	"calsync-api/core/utils"

	"github.com/labstack/echo/v4"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
)

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware validates the bearer token and stores the user identity on
// the echo context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized,
					errors.NewAppError(errors.ErrMissingAuthorizationHeader, "missing Authorization header", nil))
			}

			token := strings.TrimPrefix(header, "Bearer ")
			data, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized,
					errors.NewAppError(errors.ErrUnauthorized, "invalid token", err))
			}

			c.Set(ContextUserID, data.UserID)
			c.Set(ContextUserEmail, data.Email)
			return next(c)
		}
	}
}
