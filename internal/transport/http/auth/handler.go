package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jazjo-app/jazjo/internal/dto"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/presentation/http/response"
	service "github.com/jazjo-app/jazjo/internal/service/auth"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

// Handler exposes authentication endpoints over HTTP.
type Handler struct {
	gate *service.Service
}

// NewHandler constructs an auth Handler.
func NewHandler(gate *service.Service) *Handler {
	return &Handler{gate: gate}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
}

func (h *Handler) register(c echo.Context) error {
	b := response.New(c)

	var payload service.RegisterInput
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	profile, err := h.gate.Register(c.Request().Context(), payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(map[string]any{
		"user": toProfileDTO(profile),
	}).Build()
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	session, profile, err := h.gate.Login(c.Request().Context(), payload.Email, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(map[string]any{
		"user": toProfileDTO(profile),
		"session": dto.SessionResponse{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		},
	}).Build()
}

func toProfileDTO(profile *entity.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:          profile.ID,
		Email:       profile.Email,
		Role:        string(profile.Role),
		DisplayName: profile.DisplayName,
		Contact:     profile.Contact,
		Address:     profile.Address,
	}
}
