package groups

import (
	"go.uber.org/fx"
)

// Module provides the groups domain
var Module = fx.Module("groups",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
