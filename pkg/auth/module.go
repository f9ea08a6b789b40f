package auth

import "go.uber.org/fx"

// Module provides the identity middleware
var Module = fx.Module("auth",
	fx.Provide(NewMiddleware),
)
