package panel

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	authsvc "github.com/jazjo-app/jazjo/internal/service/auth"
)

// Module wires the staff/admin panel handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler, gate *authsvc.Service) {
		Register(e, h, gate)
	}),
)
