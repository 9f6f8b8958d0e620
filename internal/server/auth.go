package server

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	apperrors "github.com/fabian-lindhardt/ableton-ebs/internal/errors"
)

const claimsContextKey = "claims"

// requireAuth validates the extension-helper JWT from the Authorization
// header and stores the resulting claims in the request context.
//
// Outside production a configured DEV_TOKEN grants broadcaster claims, so
// the panel can be exercised without a real extension secret.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return apperrors.UnauthorizedError("missing bearer token")
		}

		if !s.config.IsProduction() && s.config.DevToken != "" && token == s.config.DevToken {
			c.Set(claimsContextKey, domain.Claims{
				UserID:       "dev",
				OpaqueUserID: "U-dev",
				ChannelID:    s.config.ChannelID,
				Role:         domain.RoleBroadcaster,
			})
			return next(c)
		}

		claims, err := s.verifier.Verify(token)
		if err != nil {
			return apperrors.UnauthorizedError("invalid token")
		}

		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func claimsFrom(c echo.Context) (domain.Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(domain.Claims)
	return claims, ok
}
