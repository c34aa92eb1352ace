package auth

import "go.uber.org/fx"

// Module provides the access control gate to Fx.
var Module = fx.Provide(NewService)
