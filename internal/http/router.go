package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roamsim/esim-platform/reconcile-service/internal/config"
)

// RateLimiter 简单的内存速率限制器
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// RateLimitMiddleware 速率限制中间件
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("userID")
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config
}

// 全局速率限制器: 每用户每分钟最多 60 次请求（轮询端点会被界面反复调用）
var userRateLimiter = NewRateLimiter(60, time.Minute)

// 购买速率限制器: 每用户每小时最多 10 次
// 说明: 界面阻止并发结账，重入保护在 Orchestrator；这里只挡住滥用
var purchaseRateLimiter = NewRateLimiter(10, time.Hour)

func NewServer(cfg *config.Config, handler *Handler) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		handler: handler,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "reconcile-service",
		})
	})

	// User API - called by the mobile shell, requires JWT authentication
	user := s.router.Group("/api/v1")
	user.Use(JWTAuthMiddleware(s.cfg.JWT.SecretKey))
	user.Use(RateLimitMiddleware(userRateLimiter))
	{
		// Buy Now: orchestrated purchase with the interactive poll budget
		user.POST("/purchase", RateLimitMiddleware(purchaseRateLimiter), s.handler.Purchase)

		// Deep-link resumption: the shell forwards every delivered URL here
		user.POST("/deeplink", s.handler.DeepLink)

		// Order snapshot + should-poll pre-check for screens
		user.GET("/orders/:id", s.handler.GetOrder)

		// One polling loop with a named budget (quick/background/resumption)
		user.GET("/orders/:id/poll", s.handler.PollOrder)

		// Pending-purchase slot
		user.GET("/pending", s.handler.GetPending)
		user.DELETE("/pending", s.handler.ClearPending)
	}

	// Internal API - called by cron / notification layers
	internal := s.router.Group("/api/internal")
	internal.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		// Re-run recovery for a user with the long background budget
		internal.POST("/reconcile/:user_id", s.handler.ReconcileUser)

		// Reconciliation trail for support tooling
		internal.GET("/orders/:order_id/events", s.handler.GetOrderEvents)
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
