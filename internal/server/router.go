// Package server assembles the HTTP router: middleware, stores, services and
// the /api routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-events/internal/attendees"
	"ms-events/internal/attendees/attendee_api"
	attendee_db "ms-events/internal/attendees/db"
	"ms-events/internal/auth"
	"ms-events/internal/auth/auth_api"
	auth_db "ms-events/internal/auth/db"
	"ms-events/internal/config"
	"ms-events/internal/events"
	event_db "ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
	"ms-events/internal/ratelimit"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

// Publisher receives an activity after every successful write.
type Publisher interface {
	Publish(ctx context.Context, activity models.Activity) error
}

type Deps struct {
	DB     *bun.DB
	Redis  *redis.Client // optional
	Config *config.Config
	Logger *logger.Logger

	// Publisher defaults to dropping activities.
	Publisher Publisher
	// Limiter overrides the limiter picked from the config. The caller owns it.
	Limiter ratelimit.Limiter
}

const requestIDHeader = "X-Request-ID"

// NewRouter builds the full HTTP handler. The returned func releases what the
// router started itself and must be called once the server has stopped.
func NewRouter(d Deps) (http.Handler, func(), error) {
	log := d.Logger
	v := validation.New()

	var cache auth.TokenCache = auth.NoopCache()
	if d.Redis != nil {
		cache = auth.NewRedisTokenCache(d.Redis, d.Config.Auth.TokenCacheTTL)
	}
	authService, err := auth.NewAuthService(&auth_db.DB{Bun: d.DB}, cache, v, log, d.Config.Auth.BcryptCost)
	if err != nil {
		return nil, nil, err
	}

	var pub Publisher = kafka.NoopPublisher{}
	if d.Publisher != nil {
		pub = d.Publisher
	}
	eventService := events.NewEventService(&event_db.DB{Bun: d.DB}, pub, v, log)
	attendeeService := attendees.NewAttendeeService(&attendee_db.DB{Bun: d.DB}, pub, log)

	authHandler := &auth_api.Handler{AuthService: authService, Logger: log}
	eventHandler := &event_api.Handler{EventService: eventService, Logger: log}
	attendeeHandler := &attendee_api.Handler{AttendeeService: attendeeService, Logger: log}

	limiter := d.Limiter
	release := func() {}
	if limiter == nil {
		limiter = newLimiter(d, log)
		if s, ok := limiter.(interface{ Stop() }); ok {
			release = s.Stop
		}
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(log))
	r.Use(metrics.HTTPMiddleware)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, r, log, utils.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusMethodNotAllowed, utils.ErrorResponse{Message: "The method is not supported for this route."})
	})

	r.Get("/healthz", health(d.DB, log))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(authService, log))
		if limiter != nil {
			r.Use(ratelimit.Middleware(limiter, log, d.Config.RateLimit.TrustedProxyCIDRs))
		}

		authHandler.RegisterRoutes(r, auth.RequireActor)
		eventHandler.RegisterRoutes(r, auth.RequireActor)
		attendeeHandler.RegisterRoutes(r, auth.RequireActor)
	})
	log.Info("ROUTER", "Auth, event and attendee routes registered under /api")

	return r, release, nil
}

func newLimiter(d Deps, log *logger.Logger) ratelimit.Limiter {
	perMinute := d.Config.RateLimit.PerMinute
	if perMinute <= 0 {
		log.Warn("RATELIMIT", "Rate limiting disabled")
		return nil
	}
	if d.Redis != nil {
		log.Info("RATELIMIT", fmt.Sprintf("Redis rate limiter, %d requests per minute", perMinute))
		return ratelimit.NewRedisLimiter(d.Redis, perMinute)
	}
	log.Info("RATELIMIT", fmt.Sprintf("In-process rate limiter, %d requests per minute", perMinute))
	return ratelimit.NewMemoryLimiter(perMinute)
}

// RequestID keeps the client's X-Request-ID or assigns a new one, and echoes
// it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AccessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}

func health(db *bun.DB, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Error("HEALTH", fmt.Sprintf("Database ping failed: %v", err))
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
