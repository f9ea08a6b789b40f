package policies

import (
	"go.uber.org/fx"
)

// Module provides the policies domain
var Module = fx.Module("policies",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
