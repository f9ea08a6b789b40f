package history

import "go.uber.org/fx"

// Module provides the snapshot rebuilder.
var Module = fx.Module("history",
	fx.Provide(NewRebuilder),
)
