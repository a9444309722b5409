package server

import (
	"net/http"
	"time"

	"github.com/jinga80/medical-law/internal/metrics"
	"github.com/jinga80/medical-law/internal/mw"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Options struct {
	Env     string
	Origins []string
	Limiter *mw.RateLimiter
}

// SetupRouter 统一初始化 Gin 中间件、片段读取接口以及操作接口。
func SetupRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(opts.Env, opts.Origins...))
	limiter := opts.Limiter
	if limiter == nil {
		// 控制单个 IP+路由的速率，页面轮询片段时足够宽松。
		limiter = mw.NewRateLimiter(rate.Every(time.Second/20), 40, 2*time.Minute)
	}
	r.Use(limiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/fragments", h.ListFragments)
	r.GET("/fragments/:id", h.GetFragment)

	api := r.Group("/api/v1")
	api.GET("/state", h.State)

	api.POST("/notifications/:id/read", h.MarkRead)
	api.POST("/notifications/read-all", h.MarkAllRead)
	api.POST("/notifications/stats", h.RequestStats)

	api.POST("/rooms/:id/join", h.JoinRoom)
	api.DELETE("/rooms/:id", h.LeaveRoom)
	api.POST("/rooms/:id/messages", h.SendMessage)
	api.POST("/rooms/:id/typing", h.Typing)
	api.POST("/rooms/:id/history", h.RequestHistory)
	return r
}
