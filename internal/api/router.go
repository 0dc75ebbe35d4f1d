package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/mini-ai-studio/studio-api/docs"
	"github.com/mini-ai-studio/studio-api/internal/api/handler"
	"github.com/mini-ai-studio/studio-api/internal/api/middleware"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
	"github.com/mini-ai-studio/studio-api/internal/core/service"
)

// multipartOverhead is allowed on top of the file limit so that an oversized
// image is reported by the upload pipeline rather than cut off mid-body.
const multipartOverhead = 1 << 20

// Dependencies groups everything the router wires into handlers.
type Dependencies struct {
	Auth        ports.AuthService
	Tokens      ports.TokenService
	Generations ports.GenerationService

	// Mongo and Redis are only used by the readiness probe; nil skips the check.
	Mongo *mongo.Database
	Redis *redis.Client

	// StaticDir is served under StaticPrefix when set (local content store).
	StaticDir    string
	StaticPrefix string

	AllowedOrigins []string
	MaxUploadBytes int64

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "studio",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	generationHandler := handler.NewGenerationHandler(deps.Generations)
	requireAuth := middleware.Auth(deps.Tokens)
	verifyAuth := middleware.AuthWithConfig(middleware.AuthConfig{
		Tokens:    deps.Tokens,
		OnFailure: handler.VerifyFailure,
	})

	api := e.Group("/api")

	// --- Auth routes ---
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/verify", authHandler.Verify, verifyAuth)

	// --- Generation routes ---
	generations := api.Group("/generations", requireAuth)
	generations.POST("/upload", generationHandler.Upload, uploadBodyLimit(deps.MaxUploadBytes))
	generations.GET("/recent", generationHandler.Recent)

	// --- Static content (local store only) ---
	if deps.StaticDir != "" {
		prefix := deps.StaticPrefix
		if prefix == "" {
			prefix = "/uploads"
		}
		static := e.Group(prefix, crossOriginResource)
		static.Static("/", deps.StaticDir)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Observability and docs ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func uploadBodyLimit(maxUpload int64) echo.MiddlewareFunc {
	if maxUpload <= 0 {
		maxUpload = service.DefaultMaxUploadBytes
	}
	return echomiddleware.BodyLimit(fmt.Sprintf("%dB", maxUpload+multipartOverhead))
}

// crossOriginResource lets other origins embed served images.
func crossOriginResource(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
		return next(c)
	}
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = log.Error()
			} else if v.Status >= http.StatusBadRequest {
				evt = log.Warn()
			}
			if v.Error != nil {
				evt = evt.Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
