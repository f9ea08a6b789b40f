// Package main provides the entry point for the Flexo MMS layer 1 gateway
//
// @title Flexo MMS Layer 1
// @version 0.1.0
// @description Transactional SPARQL gateway for versioned model management
// @license.name Apache-2.0
// @host localhost:8080
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey ProxyUser
// @in header
// @name X-MMS-User
// @description User identity asserted by the authenticating proxy
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/bootstrap"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/branches"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/commits"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/diffs"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/groups"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/health"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/history"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/locks"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/orgs"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/policies"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/repos"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/resource"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/tracing"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/domain/users"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/server"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
)

func main() {
	// .env fills unset variables; .env.local overrides them
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		server.Module,
		tracing.Module,
		store.Module,
		txn.Module,

		// Identity headers from the authenticating proxy
		auth.Module,

		// Shared resource operations and ref snapshots
		resource.Module,
		history.Module,

		// Seeds the cluster, access definitions and root policy
		bootstrap.Module,

		// Domain modules
		health.Module,
		orgs.Module,
		repos.Module,
		branches.Module,
		locks.Module,
		commits.Module,
		diffs.Module,
		groups.Module,
		policies.Module,
		users.Module,
	).Run()
}
