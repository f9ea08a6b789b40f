package locks

import (
	"go.uber.org/fx"
)

// Module provides the locks domain
var Module = fx.Module("locks",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
