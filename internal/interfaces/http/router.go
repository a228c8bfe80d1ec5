package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/node-health-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/node-health-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/node-health-monitor/pkg/config"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
	"github.com/dreschagin/node-health-monitor/pkg/metrics"
)

// Router настраивает маршруты приложения
type Router struct {
	mux              *http.ServeMux
	healthAPIHandler *handler.HealthAPIHandler
	websocketHandler *handler.WebSocketHandler
	security         config.SecurityConfig
	rateLimit        config.RateLimitConfig
	metrics          *metrics.Metrics
	logger           *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	healthAPIHandler *handler.HealthAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	security config.SecurityConfig,
	rateLimit config.RateLimitConfig,
	m *metrics.Metrics,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		healthAPIHandler: healthAPIHandler,
		websocketHandler: websocketHandler,
		security:         security,
		rateLimit:        rateLimit,
		metrics:          m,
		logger:           logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Prometheus self-metrics
	rt.mux.Handle("/metrics", promhttp.HandlerFor(rt.metrics.Registry(), promhttp.HandlerOpts{}))

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)

	// WebSocket (auth проверяется внутри handler, токен приходит в query)
	rt.mux.HandleFunc("/ws", rt.websocketHandler.HandleConnection)

	// API endpoints
	rt.mux.Handle("GET /api/v1/health", authMiddleware(http.HandlerFunc(rt.healthAPIHandler.GetClusterHealth)))
	rt.mux.Handle("GET /api/v1/health/summary", authMiddleware(http.HandlerFunc(rt.healthAPIHandler.GetSummary)))
	rt.mux.Handle("GET /api/v1/nodes/{name}", authMiddleware(http.HandlerFunc(rt.healthAPIHandler.GetNode)))

	// Применяем middleware
	rateLimiter := middleware.NewIPRateLimiter(rt.rateLimit.RequestsPerSecond, rt.rateLimit.Burst)

	var h http.Handler = rt.mux
	h = middleware.RateLimit(rateLimiter)(h)
	h = middleware.Logger(rt.logger)(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}
