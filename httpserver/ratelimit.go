package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"moviegate/errs"
	"moviegate/pkg/metrics"
	"moviegate/ratelimit"
)

// admissionTimeout bounds a single check against a remote counter store.
const admissionTimeout = 2 * time.Second

// rateLimit admits a request against the named bucket before the handler
// runs. Clients are keyed by echo's RealIP. Every response, admitted or
// not, carries the bucket's X-RateLimit headers.
func (s *Server) rateLimit(bucket string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), admissionTimeout)
			defer cancel()

			client := c.RealIP()
			dec, err := s.Limiter.CheckAndConsume(ctx, client, s.Buckets[bucket])

			var quota *ratelimit.QuotaError
			switch {
			case err == nil:
				metrics.AdmissionDecisions.WithLabelValues(bucket, metrics.ResultAllowed).Inc()
				setQuotaHeaders(c, dec)
				return next(c)

			case errors.As(err, &quota):
				metrics.AdmissionDecisions.WithLabelValues(bucket, metrics.ResultRejected).Inc()
				setQuotaHeaders(c, dec)
				c.Response().Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(quota.RetryAfter)))
				return quota.AppError()

			default:
				// store unavailable: fail closed, nothing reaches the provider
				metrics.AdmissionDecisions.WithLabelValues(bucket, metrics.ResultError).Inc()
				s.logger().ErrorContext(c.Request().Context(), "admission check failed",
					slog.String("bucket", bucket), slog.String("client", client), slog.String("error", err.Error()))
				return errs.Errorf(errs.EINTERNAL, "admission check failed: %v", err)
			}
		}
	}
}

func setQuotaHeaders(c echo.Context, dec ratelimit.Decision) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))
}
