package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jinga80/medical-law/internal/manager"
	"github.com/jinga80/medical-law/internal/models"
	"github.com/jinga80/medical-law/internal/sched"
	"github.com/jinga80/medical-law/internal/view"
	"github.com/jinga80/medical-law/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Looper 把调用串行化到事件循环上，*sched.Loop 满足该接口。
type Looper interface {
	Do(ctx context.Context, fn func()) error
}

// Handler 聚合所有 HTTP handler。对 manager 的每次访问都经 Looper 转发到事件循环。
type Handler struct {
	loop    Looper
	mgr     *manager.Manager
	doc     *view.Document
	timeout time.Duration
}

func NewHandler(loop Looper, mgr *manager.Manager, doc *view.Document) *Handler {
	return &Handler{loop: loop, mgr: mgr, doc: doc, timeout: 5 * time.Second}
}

// run 在事件循环上执行 fn 并返回其错误。
func (h *Handler) run(c *gin.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	var err error
	if lerr := h.loop.Do(ctx, func() { err = fn() }); lerr != nil {
		return lerr
	}
	return err
}

// respond 把领域错误映射为状态码。
func respond(c *gin.Context, err error, op string) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, manager.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
	case errors.Is(err, manager.ErrUnknownRoom):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not joined"})
	case errors.Is(err, ws.ErrNotOpen), errors.Is(err, ws.ErrClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "connection not open"})
	case errors.Is(err, ws.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "send queue full"})
	case errors.Is(err, manager.ErrClosed), errors.Is(err, sched.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "client shutting down"})
	default:
		log.Error().Err(err).Str("op", op).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) ListFragments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fragments": h.doc.IDs()})
}

// GetFragment 返回 HTML 片段，ETag 为片段版本号。
func (h *Handler) GetFragment(c *gin.Context) {
	f, ok := h.doc.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown fragment"})
		return
	}
	etag := `"` + strconv.FormatUint(f.Version, 10) + `"`
	c.Header("ETag", etag)
	c.Header("X-Scroll", strconv.FormatUint(f.Scroll, 10))
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(f.HTML))
}

func (h *Handler) State(c *gin.Context) {
	var snap manager.Snapshot
	if err := h.run(c, func() error { snap = h.mgr.Snapshot(); return nil }); err != nil {
		respond(c, err, "state")
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id := models.ID(c.Param("id"))
	respond(c, h.run(c, func() error { return h.mgr.MarkRead(id) }), "mark read")
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	respond(c, h.run(c, h.mgr.MarkAllRead), "mark all read")
}

func (h *Handler) RequestStats(c *gin.Context) {
	respond(c, h.run(c, h.mgr.RequestStats), "request stats")
}

func (h *Handler) JoinRoom(c *gin.Context) {
	id := c.Param("id")
	respond(c, h.run(c, func() error { return h.mgr.JoinRoom(id) }), "join room")
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	id := c.Param("id")
	respond(c, h.run(c, func() error { return h.mgr.LeaveRoom(id) }), "leave room")
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	id := c.Param("id")
	respond(c, h.run(c, func() error { return h.mgr.SendMessage(id, req.Content) }), "send message")
}

func (h *Handler) Typing(c *gin.Context) {
	var req struct {
		Typing *bool `json:"typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Typing == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	id := c.Param("id")
	respond(c, h.run(c, func() error {
		if *req.Typing {
			return h.mgr.Typing(id)
		}
		return h.mgr.StopTyping(id)
	}), "typing")
}

func (h *Handler) RequestHistory(c *gin.Context) {
	id := c.Param("id")
	respond(c, h.run(c, func() error { return h.mgr.RequestHistory(id) }), "request history")
}
