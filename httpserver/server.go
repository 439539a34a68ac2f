package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"moviegate/errs"
	"moviegate/movie"
	"moviegate/pkg/config"
	"moviegate/pkg/sentry"
	"moviegate/ratelimit"
)

// Bucket names. Each logical endpoint owns its own quota.
const (
	BucketSearch  = "search"
	BucketDetails = "details"
)

type Server struct {
	// Router is the Echo router instance
	Router *echo.Echo

	// Addr represents the address the server will listen on
	Addr string

	// Allowed origins for CORS
	AllowOrigins []string

	MovieService movie.Service

	// Limiter guards every upstream-facing route. Buckets are looked up by
	// name at request time, so both can be swapped after Default.
	Limiter *ratelimit.Limiter
	Buckets map[string]ratelimit.Bucket

	Logger *slog.Logger
}

func Default(cfg *config.Config) *Server {
	s := Server{
		Router:       echo.New(),
		Addr:         ":8080",
		AllowOrigins: parseOrigins(cfg.AllowOrigins),
		Limiter:      ratelimit.New(ratelimit.NewMemoryStore()),
		Buckets:      BucketsFromConfig(cfg),
		Logger:       slog.Default(),
	}

	s.Router.HideBanner = true
	s.Router.HTTPErrorHandler = s.handleError
	s.Router.Validator = NewValidator()
	if cfg.TrustProxy {
		s.Router.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		s.Router.IPExtractor = echo.ExtractIPDirect()
	}

	s.RegisterGlobalMiddlewares()
	s.RegisterHealthRoutes()
	s.RegisterMovieRoutes()
	return &s
}

// BucketsFromConfig builds the per-endpoint quotas, falling back to the
// defaults for anything left unset.
func BucketsFromConfig(cfg *config.Config) map[string]ratelimit.Bucket {
	search := ratelimit.Bucket{Name: BucketSearch, Limit: cfg.RateLimit.SearchLimit, Window: cfg.RateLimit.SearchWindow}
	if search.Limit <= 0 {
		search.Limit = 30
	}
	if search.Window <= 0 {
		search.Window = time.Minute
	}

	details := ratelimit.Bucket{Name: BucketDetails, Limit: cfg.RateLimit.DetailsLimit, Window: cfg.RateLimit.DetailsWindow}
	if details.Limit <= 0 {
		details.Limit = 60
	}
	if details.Window <= 0 {
		details.Window = time.Minute
	}

	return map[string]ratelimit.Bucket{
		BucketSearch:  search,
		BucketDetails: details,
	}
}

func parseOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (s *Server) RegisterGlobalMiddlewares() {
	s.Router.Use(middleware.Recover())
	s.Router.Use(middleware.Secure())
	s.Router.Use(middleware.RequestID())
	s.Router.Use(s.requestLogger())
	s.Router.Use(middleware.Gzip())
	s.Router.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	// CORS
	if len(s.AllowOrigins) > 0 {
		s.Router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.AllowOrigins,
		}))
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			s.logger().LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) Start() error {
	return s.Router.Start(s.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Router.Shutdown(ctx)
}

// handleError maps application errors to HTTP status codes. Every failure is
// written as {"error": ...}.
func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var body interface{} = "Internal server error"

	var upstream *movie.UpstreamError
	var quota *ratelimit.QuotaError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &upstream):
		// provider answered with something other than 200: relay it as is
		code = upstream.Status
		body = upstream.Body
	case errors.As(err, &quota):
		code = http.StatusTooManyRequests
		body = quota.AppError().Message
	case errors.As(err, &he):
		code = he.Code
		body = he.Message
	default:
		switch errs.ErrorCode(err) {
		case errs.EINVALID:
			code = http.StatusBadRequest
			body = errs.ErrorMessage(err)
		case errs.ENOTFOUND:
			code = http.StatusNotFound
			body = errs.ErrorMessage(err)
		case errs.ECONFLICT:
			code = http.StatusConflict
			body = errs.ErrorMessage(err)
		case errs.EUNAUTHORIZED:
			code = http.StatusUnauthorized
			body = errs.ErrorMessage(err)
		case errs.ERATELIMITED:
			code = http.StatusTooManyRequests
			body = errs.ErrorMessage(err)
		case errs.ENOTIMPLEMENTED:
			code = http.StatusNotImplemented
			body = errs.ErrorMessage(err)
		case errs.EUPSTREAM:
			code = http.StatusInternalServerError
			body = errs.ErrorMessage(err)
		}
	}

	if code >= http.StatusInternalServerError && upstream == nil {
		s.logger().ErrorContext(c.Request().Context(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		sentry.WithContext(c).Error(err)
	}

	// Don't write response if already committed
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: body})
	}
	if err != nil {
		s.logger().Error("write error response", slog.String("error", err.Error()))
	}
}
