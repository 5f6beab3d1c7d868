package wire

import (
	"math"
	"net/netip"
	"time"

	"subtitle-hub/internal/adaptor"
	"subtitle-hub/internal/data/repository"
	"subtitle-hub/internal/usecase"
	"subtitle-hub/pkg/middleware"
	"subtitle-hub/pkg/notifier"
	"subtitle-hub/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// App holds the wired router plus what the process needs to run and stop it
type App struct {
	Router  *chi.Mux
	Service *usecase.Service

	closers []func()
}

// Close releases resources opened during wiring, in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Wiring builds services, handlers and routes
func Wiring(repo *repository.Repository, db adaptor.Pinger, config *utils.Config, logger *zap.Logger) (*App, error) {
	app := &App{}

	sender := notifier.NewLogSender(logger, config.OTP.DevLog)
	app.Service = usecase.NewService(repo, sender, config, logger)
	handler := adaptor.NewHandler(app.Service, db, logger)

	proxies, err := middleware.ParseTrustedProxies(config.App.TrustedProxies)
	if err != nil {
		return nil, err
	}

	limiter, closeLimiter, err := newLimiter(config.RateLimit, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeLimiter)

	app.Router = setupRouter(handler, limiter, proxies, config, logger)
	return app, nil
}

// setupRouter configures the chi router
func setupRouter(
	handler *adaptor.Handler,
	limiter middleware.Limiter,
	proxies []netip.Prefix,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(proxies))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.CORS.AllowedOrigins))

	// Apply routes
	wireComment(r, handler.Comment, limiter, logger)

	r.Get("/health", handler.Health.Check)

	return r
}

// newLimiter prefers Redis so several instances share one budget
func newLimiter(config utils.RateLimitConfig, logger *zap.Logger) (middleware.Limiter, func(), error) {
	if config.RedisAddr != "" {
		client, err := middleware.NewRedisClient(config)
		if err != nil {
			return nil, nil, err
		}

		window := time.Minute
		limit := int(math.Ceil(config.RPS * window.Seconds()))
		if limit < config.Burst {
			limit = config.Burst
		}

		logger.Info("Using Redis rate limiter",
			zap.String("addr", config.RedisAddr),
			zap.Int("limit", limit),
			zap.Duration("window", window),
		)
		return middleware.NewRedisLimiter(client, limit, window), func() { client.Close() }, nil
	}

	logger.Info("Using in-memory rate limiter",
		zap.Float64("rps", config.RPS),
		zap.Int("burst", config.Burst),
	)
	limiter := middleware.NewMemoryLimiter(rate.Limit(config.RPS), config.Burst)
	return limiter, limiter.Close, nil
}
