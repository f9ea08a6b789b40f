package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
)

var Module = fx.Module("server",
	fx.Provide(NewEcho),
	fx.Invoke(StartServer),
)

// probePaths are excluded from the request log.
var probePaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/ready":   true,
	"/metrics": true,
}

// EchoParams are the dependencies for creating an Echo instance
type EchoParams struct {
	fx.In

	Config     *config.Config
	Log        *slog.Logger
	HTTPLogger *logger.HTTPLogger `optional:"true"`
}

// NewEcho creates the Echo instance every domain registers its routes on.
func NewEcho(p EchoParams) *echo.Echo {
	cfg := p.Config

	e := echo.New()
	e.Debug = cfg.Debug
	e.HideBanner = true
	e.HidePort = !cfg.Debug
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(p.Log)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		cors(cfg),
		middleware.RequestID(),
		requestLog(p.Log, p.HTTPLogger),
		recoverer(p.Log),
	)
	if cfg.MaxBodySize != "" {
		e.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return e
}

// cors lets browser clients send conditional requests and identity headers,
// and read the ETag of responses.
func cors(cfg *config.Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return true, nil
		},
		AllowCredentials: true,
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderCacheControl,
			"If-Match", "If-None-Match", cfg.Auth.UserHeader, cfg.Auth.GroupsHeader,
		},
		ExposeHeaders: []string{"ETag"},
	})
}

func requestLog(log *slog.Logger, access *logger.HTTPLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return probePaths[c.Request().URL.Path]
		},
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		LogMethod:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if actor := auth.GetActor(c); actor != nil {
				attrs = append(attrs, slog.String("user", actor.User))
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				attrs = append(attrs, logger.Error(v.Error))
				log.Error("request failed", attrs...)
			case v.Error != nil:
				attrs = append(attrs, logger.Error(v.Error))
				log.Info("request rejected", attrs...)
			default:
				log.Info("request", attrs...)
			}

			access.LogRequest(c.RealIP(), v.Method, v.URI, v.Status, v.Latency, c.Request().UserAgent(), v.RequestID)
			return nil
		},
	})
}

func recoverer(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered",
				logger.Error(err),
				slog.String("uri", c.Request().RequestURI),
				slog.String("stack", string(stack)),
			)
			return err
		},
	})
}

// StartServer runs the HTTP server for the lifetime of the application.
func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, log *slog.Logger) {
	log = log.With(logger.Scope("server"))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.ServerAddress, cfg.ServerPort),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting HTTP server",
				slog.String("address", server.Addr),
				slog.String("root_context", cfg.RootContext),
				slog.String("store", cfg.Store.QueryURL),
			)
			go func() {
				if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server error", logger.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	})
}
