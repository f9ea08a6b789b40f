package repos

import (
	"go.uber.org/fx"
)

// Module provides the repositories domain
var Module = fx.Module("repos",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
