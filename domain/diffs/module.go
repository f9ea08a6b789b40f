package diffs

import (
	"go.uber.org/fx"
)

// Module provides the diffs domain
var Module = fx.Module("diffs",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
