// Package api 提供 HTTP 入口：健身推荐、饮食计划、健身问答，以及健康检查与指标。
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rushteam/carefolio/coach"
	"github.com/rushteam/carefolio/mealplan"
	"github.com/rushteam/carefolio/workout"
)

const (
	// APIPrefix 业务接口前缀
	APIPrefix = "/api/v1"

	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 1 << 20
)

// Services 已初始化的服务，nil 表示该服务未初始化（接口返回 503）
type Services struct {
	Workout  *workout.Recommender
	MealPlan *mealplan.Planner
	Coach    *coach.Coach
}

type routerConfig struct {
	logger      *zap.Logger
	timeout     time.Duration
	rateLimit   int
	rateWindow  time.Duration
	corsOrigins []string
	middlewares []func(http.Handler) http.Handler
}

// Option 路由配置项
type Option func(*routerConfig)

// WithLogger 设置访问日志与错误日志使用的 logger
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *routerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithTimeout 设置单个请求的处理超时
func WithTimeout(d time.Duration) Option {
	return func(cfg *routerConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithRateLimit 按客户端 IP 限流，limit <= 0 表示不限流
func WithRateLimit(limit int, window time.Duration) Option {
	return func(cfg *routerConfig) {
		cfg.rateLimit = limit
		cfg.rateWindow = window
	}
}

// WithCORSOrigins 设置允许跨域的来源
func WithCORSOrigins(origins ...string) Option {
	return func(cfg *routerConfig) {
		cfg.corsOrigins = origins
	}
}

// WithMiddlewares 追加全局中间件
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// NewRouter 构建路由
func NewRouter(svc Services, opts ...Option) chi.Router {
	cfg := routerConfig{
		logger:      zap.NewNop(),
		timeout:     defaultTimeout,
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rateWindow <= 0 {
		cfg.rateWindow = time.Minute
	}

	h := &handlers{svc: svc, logger: cfg.logger, started: time.Now()}
	h.publishReadiness()

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		accessLog(cfg.logger),
		observe,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
	)
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path))
	})

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route(APIPrefix, func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.timeout))
		if cfg.rateLimit > 0 {
			api.Use(httprate.LimitByIP(cfg.rateLimit, cfg.rateWindow))
		}
		api.Post("/workout/recommend", h.recommendWorkout)
		api.Post("/mealplan/predict", h.predictMealPlan)
		api.Post("/coach/chat", h.chat)
	})
	return r
}
