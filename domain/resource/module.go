package resource

import "go.uber.org/fx"

// Module provides the shared resource service.
var Module = fx.Module("resource",
	fx.Provide(NewService),
)
