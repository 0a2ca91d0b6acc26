package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/platform/metrics"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/port/rest/middleware"
)

// RouterOptions bundles the knobs the router needs beyond its handlers.
type RouterOptions struct {
	MaxBodyBytes int64
	Limiter      *middleware.RateLimiter
	// UploadLimiter throttles the image-carrying endpoints separately.
	UploadLimiter *middleware.RateLimiter
	Metrics       *metrics.Metrics
}

// NewRouter wires the full route tree. Health and metrics endpoints stay
// outside the rate-limited group so probes and scrapes are never throttled.
func NewRouter(listings *ListingHandler, health *HealthHandler, logger *zap.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		r.Use(latencyMetrics(opts.Metrics))
	}

	r.Get("/health", health.HandleLive)
	r.Get("/health/deep", health.HandleDeep)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api/listings", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}
		r.Use(middleware.MaxBody(opts.MaxBodyBytes))

		r.Get("/", listings.HandleList)
		r.Get("/{id}", listings.HandleGet)
		r.Delete("/{id}", listings.HandleDelete)
		r.Delete("/{id}/image", listings.HandleDeleteImage)

		r.Group(func(r chi.Router) {
			if opts.UploadLimiter != nil {
				r.Use(opts.UploadLimiter.Middleware)
			}
			r.Post("/", listings.HandleCreate)
			r.Patch("/{id}", listings.HandlePatch)
		})
	})

	return r
}

// latencyMetrics records request duration against the matched chi route
// pattern so path parameters do not explode label cardinality.
func latencyMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
