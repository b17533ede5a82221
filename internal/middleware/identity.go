package middleware

import (
	"strings"

	"offer-service/pkg/jwtutil"
	"offer-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IdentityMiddleware attaches the caller identity from a bearer token to the
// request context and logger. The token is optional: anonymous requests pass
// through unchanged, and so does everything when no signing key is configured.
func IdentityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !jwtutil.Enabled() {
			return next(c)
		}

		tokenString := c.Request().Header.Get("Authorization")
		if tokenString == "" {
			return next(c)
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
			tokenString = tokenString[7:]
		}

		log := logger.FromContext(c)
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Ignoring invalid bearer token", zap.Error(err))
			return next(c)
		}

		// Store user information in the context
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		// Update logger with user information
		log = log.With(
			zap.Uint("user_id", claims.UserID),
			zap.String("email", claims.Email),
		)
		c.Set("logger", log)

		return next(c)
	}
}
