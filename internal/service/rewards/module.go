package rewards

import "go.uber.org/fx"

// Module provides the rewards projection to Fx.
var Module = fx.Provide(NewService)
