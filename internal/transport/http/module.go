package http

import (
	"go.uber.org/fx"

	authtransport "github.com/jazjo-app/jazjo/internal/transport/http/auth"
	catalogtransport "github.com/jazjo-app/jazjo/internal/transport/http/catalog"
	ordertransport "github.com/jazjo-app/jazjo/internal/transport/http/order"
	paneltransport "github.com/jazjo-app/jazjo/internal/transport/http/panel"
	webhooktransport "github.com/jazjo-app/jazjo/internal/transport/http/webhook"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	authtransport.Module,
	catalogtransport.Module,
	ordertransport.Module,
	paneltransport.Module,
	webhooktransport.Module,
)
