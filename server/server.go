package server

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/MrEthical07/careauth"
	"github.com/MrEthical07/careauth/internal/rate"
	"github.com/MrEthical07/careauth/logger"
	promexport "github.com/MrEthical07/careauth/metrics/export/prometheus"
	authmw "github.com/MrEthical07/careauth/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server serves the auth API over echo.
type Server struct {
	echo    *echo.Echo
	engine  *careauth.Engine
	limiter *rate.Limiter
	logger  *zap.Logger
	config  Config
}

// New wires engine into an echo instance. rdb backs the per-IP rate limits;
// when it is nil, or rate limiting is disabled, requests are not counted.
func New(engine *careauth.Engine, rdb redis.UniversalClient, cfg Config, zl *zap.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if zl == nil {
		zl = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = CORSOrigins(engine.Environment())
	}

	s := &Server{
		echo:   echo.New(),
		engine: engine,
		logger: zl.Named("http"),
		config: cfg,
	}
	if cfg.RateLimit.Enabled && rdb != nil {
		limits := make(map[rate.Bucket]int, len(cfg.RateLimit.Limits))
		for name, n := range cfg.RateLimit.Limits {
			limits[rate.Bucket(name)] = n
		}
		s.limiter = rate.New(rdb, rate.Config{Window: cfg.RateLimit.Window, Limits: limits})
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Logger = logger.NewEchoLogger(s.logger)
	e.IPExtractor = clientIP
	e.HTTPErrorHandler = s.handleError
	e.Validator = newRequestValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logger.NewEchoRequestLogger(s.logger))
	e.Use(middleware.Recover())
	e.Use(s.requestContext)
	e.Use(middleware.SecureWithConfig(secureConfig(engine.Environment())))
	e.Use(s.securityHeaders)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions, http.MethodPatch,
		},
		AllowHeaders: []string{
			echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestedWith,
			echo.HeaderAccept, echo.HeaderOrigin, "X-API-Key",
		},
		ExposeHeaders:    []string{"X-Total-Count", headerRateLimitRemaining},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	e.Use(s.suspiciousPathFilter)

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.health)
	e.GET("/metrics", echo.WrapHandler(promexport.NewPrometheusExporter(s.engine).Handler()))

	api := e.Group("/api", s.rateLimit(rate.BucketAPI))
	auth := api.Group("/auth")
	auth.POST("/register", s.register, s.rateLimit(rate.BucketRegistration))
	auth.POST("/login", s.login, s.rateLimit(rate.BucketAuth))
	auth.GET("/profile", s.profile, authmw.Bearer(s.engine))
	auth.PUT("/profile", s.updateProfile, authmw.Bearer(s.engine))
	auth.POST("/logout", s.logout, authmw.OptionalBearer(s.engine))
	auth.POST("/oauth/:provider", s.oauthLogin, s.rateLimit(rate.BucketOAuth))
	auth.GET("/callback", s.callback)
	auth.Any("/*", s.endpointNotFound)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.config.Addr))
	err := s.echo.StartServer(&http.Server{
		Addr:         s.config.Addr,
		Handler:      s.echo,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	})
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

// Validate reports struct tag violations as a *careauth.ValidationError keyed
// by JSON field name.
func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return &careauth.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Must be no more than " + fe.Param() + " characters"
	case "printascii":
		return "Invalid format"
	default:
		return "Invalid value"
	}
}
