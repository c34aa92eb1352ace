package lifecycle

import "go.uber.org/fx"

// Module provides the lifecycle service to Fx.
var Module = fx.Provide(NewService)
