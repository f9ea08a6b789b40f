package commits

import (
	"go.uber.org/fx"
)

// Module provides the commits domain
var Module = fx.Module("commits",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
