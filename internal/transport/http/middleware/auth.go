package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/presentation/http/response"
	"github.com/jazjo-app/jazjo/internal/service/auth"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

const profileKey = "jazjo.profile"

// CurrentProfile returns the authenticated profile stored by RequireRoles,
// or nil on unauthenticated routes.
func CurrentProfile(c echo.Context) *entity.Profile {
	profile, _ := c.Get(profileKey).(*entity.Profile)
	return profile
}

// RequireRoles authenticates the bearer token and authorizes the resolved
// profile against the allowed role set before any handler work runs. An empty
// set admits any authenticated profile.
func RequireRoles(gate *auth.Service, allowed ...entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return response.New(c).WithError(err).Build()
			}

			profile, err := gate.Authenticate(c.Request().Context(), token)
			if err != nil {
				return response.New(c).WithError(err).Build()
			}
			if err := gate.Authorize(profile, allowed...); err != nil {
				return response.New(c).WithError(err).Build()
			}

			c.Set(profileKey, profile)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", errorbank.Unauthorized("authentication required")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errorbank.Unauthorized("authorization header must be a bearer token")
	}
	return strings.TrimSpace(token), nil
}
