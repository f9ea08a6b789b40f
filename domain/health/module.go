package health

import (
	"go.uber.org/fx"
)

// Module provides liveness, readiness and metrics endpoints
var Module = fx.Module("health",
	fx.Provide(
		NewHandler,
		NewMetricsHandler,
	),
	fx.Invoke(RegisterRoutes),
)
