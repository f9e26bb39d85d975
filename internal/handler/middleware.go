package handler

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/events"
	"vsgifts-api/internal/models"
	redisrepo "vsgifts-api/internal/repository/redis"
	"vsgifts-api/internal/service"
	"vsgifts-api/internal/util"
)

type accountKey struct{}

// Authenticator resolves a bearer token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

// Limiter counts requests per client and route.
type Limiter interface {
	AllowIP(ctx context.Context, ip, route string, limit int, window time.Duration) (redisrepo.Result, error)
}

// requireHTTPS rejects any request that wasn't made over TLS
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUpgradeRequired) // 426
			w.Write([]byte(`{"success":false,"error":"https required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
					util.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ClientIP records the caller address on the context for lifecycle events.
// It must run after middleware.RealIP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(events.WithClientIP(r.Context(), remoteHost(r))))
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Protect requires a valid bearer token and stores the account on the context.
func Protect(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	h := responder{logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				h.respondWithJSON(w, http.StatusUnauthorized, Response{
					Success: false,
					Error:   "missing token",
					Message: "Not authorized, no token",
				})
				return
			}

			account, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				h.respondWithError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, account)))
		})
	}
}

// Admin must be mounted behind Protect.
func Admin(logger *zap.Logger) func(http.Handler) http.Handler {
	h := responder{logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := accountFromContext(r.Context())
			if account == nil || !account.IsAdmin {
				h.respondWithJSON(w, http.StatusForbidden, Response{
					Success: false,
					Error:   service.ErrPermissionDenied.Error(),
					Message: "Not authorized as an admin",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accountFromContext(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountKey{}).(*models.Account)
	return account
}

// RateLimit throttles by client IP and matched route pattern. A nil limiter
// or a limiter error lets the request through.
func RateLimit(limiter Limiter, cfg config.RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	h := responder{logger: logger}
	return func(next http.Handler) http.Handler {
		if limiter == nil || !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			res, err := limiter.AllowIP(r.Context(), remoteHost(r), route, cfg.Requests, cfg.Window)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request",
					util.String("route", route),
					util.ErrorField(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.ResetIn.Round(time.Second).Seconds())))
				h.respondWithError(w, service.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
