package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jinga80/medical-law/internal/metrics"
	"github.com/jinga80/medical-law/internal/models"
	"github.com/jinga80/medical-law/internal/sched"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	ErrNotOpen   = errors.New("connection not open")
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("send queue full")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20 // 1MB
	sendBuffer     = 64
)

// State 是连接状态机的当前状态，数值与 realtime_connection_state 指标一致。
type State int

const (
	Closed State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "closed"
	}
}

// Policy 描述意外断开后的重连策略：第 n 次重试前等待 n*Base。
type Policy struct {
	Reconnect   bool
	Base        time.Duration
	MaxAttempts int
}

func (p Policy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.Base
}

// Message 是客户端发出的信封。
type Message struct {
	Type           string    `json:"type"`
	NotificationID models.ID `json:"notification_id,omitempty"`
	Content        string    `json:"content,omitempty"`
}

type Options struct {
	Endpoint Endpoint
	Origin   string
	Header   http.Header
	Dialer   Dialer
	Exec     sched.Executor
	Timers   sched.Scheduler
	Policy   Policy
	Logger   zerolog.Logger

	OnMessage      func(frame []byte)
	OnConnected    func()
	OnDisconnected func(err error)
	OnStateChange  func(State)
}

// Connection 管理一条逻辑通道的生命周期。除内部 goroutine 外，所有方法都必须在
// 事件循环上调用；读写 goroutine 只通过 Exec.Post 回到循环。
type Connection struct {
	opts     Options
	url      string
	header   http.Header
	log      zerolog.Logger
	state    State
	attempts int
	sess     *session
	retry    sched.Timer
	closed   bool
}

func New(opts Options) (*Connection, error) {
	u, err := URL(opts.Origin, opts.Endpoint)
	if err != nil {
		return nil, err
	}
	if opts.Dialer == nil {
		opts.Dialer = GorillaDialer{}
	}
	if opts.Timers == nil {
		opts.Timers = sched.LoopScheduler{Exec: opts.Exec}
	}
	header := opts.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Origin") == "" {
		header.Set("Origin", opts.Origin)
	}
	c := &Connection{
		opts:   opts,
		url:    u,
		header: header,
		log:    opts.Logger.With().Str("channel", opts.Endpoint.String()).Logger(),
	}
	metrics.ConnectionState.WithLabelValues(c.label()).Set(float64(Closed))
	return c, nil
}

func (c *Connection) Endpoint() Endpoint { return c.opts.Endpoint }

func (c *Connection) URL() string { return c.url }

func (c *Connection) State() State { return c.state }

// Attempts 返回自上次成功打开以来已调度的重连次数。
func (c *Connection) Attempts() int { return c.attempts }

// Open 发起连接。已在连接中或已打开时什么都不做；显式 Close 之后返回 ErrClosed。
func (c *Connection) Open() error {
	if c.closed {
		return ErrClosed
	}
	switch c.state {
	case Connecting, Open:
		return nil
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.dial()
	return nil
}

// Send 序列化信封并放入当前会话的写队列。未打开时直接丢弃，不排队。
func (c *Connection) Send(msg Message) error {
	if c.state != Open || c.sess == nil {
		metrics.OutboundDropped.WithLabelValues(c.label(), "not_open").Inc()
		return ErrNotOpen
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	select {
	case c.sess.send <- b:
		metrics.OutboundTotal.WithLabelValues(c.label(), msg.Type).Inc()
		return nil
	default:
		metrics.OutboundDropped.WithLabelValues(c.label(), "queue_full").Inc()
		c.log.Warn().Str("type", msg.Type).Msg("send queue full, drop envelope")
		return ErrQueueFull
	}
}

// Close 主动关闭连接并取消待执行的重连，可重复调用。主动关闭不触发 OnDisconnected。
func (c *Connection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.sess != nil {
		c.setState(Closing)
		c.sess.stop()
		c.sess = nil
	}
	c.setState(Closed)
	c.log.Debug().Msg("connection closed")
}

// label 只用通道类型，避免每个房间产生一组指标。
func (c *Connection) label() string { return string(c.opts.Endpoint.Kind) }

func (c *Connection) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	metrics.ConnectionState.WithLabelValues(c.label()).Set(float64(s))
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

func (c *Connection) dial() {
	c.setState(Connecting)
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	c.sess = s
	dialer, url, header, exec := c.opts.Dialer, c.url, c.header, c.opts.Exec
	go func() {
		t, err := dialer.Dial(ctx, url, header)
		exec.Post(func() { c.dialed(s, t, err) })
	}()
}

func (c *Connection) dialed(s *session, t Transport, err error) {
	if c.sess != s {
		// 拨号期间已被新会话取代或已关闭
		if t != nil {
			_ = t.Close()
		}
		return
	}
	if err != nil {
		c.lost(s, err)
		return
	}
	s.start(t, c.opts.Exec, c)
	c.attempts = 0
	c.setState(Open)
	c.log.Info().Str("url", c.url).Msg("connection open")
	if c.opts.OnConnected != nil {
		c.opts.OnConnected()
	}
}

func (c *Connection) deliver(s *session, frame []byte) {
	if c.sess != s || c.state != Open {
		return
	}
	if c.opts.OnMessage != nil {
		c.opts.OnMessage(frame)
	}
}

// lost 处理非主动断开：状态置为 Closed，通知上层，再按策略调度重连。
func (c *Connection) lost(s *session, err error) {
	if c.sess != s {
		return
	}
	s.stop()
	c.sess = nil
	c.setState(Closed)
	c.log.Warn().Err(err).Msg("connection lost")
	if c.opts.OnDisconnected != nil {
		c.opts.OnDisconnected(err)
	}
	c.scheduleReconnect()
}

func (c *Connection) scheduleReconnect() {
	p := c.opts.Policy
	if !p.Reconnect || c.closed {
		return
	}
	if c.attempts >= p.MaxAttempts {
		c.log.Error().Int("attempts", c.attempts).Msg("reconnect attempts exhausted")
		return
	}
	c.attempts++
	delay := p.Delay(c.attempts)
	metrics.ReconnectAttempts.WithLabelValues(c.label()).Inc()
	c.log.Info().Int("attempt", c.attempts).Dur("delay", delay).Msg("reconnect scheduled")
	c.retry = c.opts.Timers.AfterFunc(delay, func() {
		c.retry = nil
		if c.closed || c.state != Closed {
			return
		}
		c.dial()
	})
}

// session 对应一次连接尝试，绝不复用。
type session struct {
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
}

func (s *session) start(t Transport, exec sched.Executor, c *Connection) {
	go s.writePump(t)
	go s.readPump(t, exec, c)
}

func (s *session) stop() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}

func (s *session) readPump(t Transport, exec sched.Executor, c *Connection) {
	defer func() { _ = t.Close() }()
	t.SetReadLimit(maxMessageSize)
	_ = t.SetReadDeadline(time.Now().Add(pongWait))
	t.SetPongHandler(func(string) error {
		return t.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := t.ReadMessage()
		if err != nil {
			exec.Post(func() { c.lost(s, err) })
			return
		}
		exec.Post(func() { c.deliver(s, data) })
	}
}

func (s *session) writePump(t Transport) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = t.Close()
	}()
	for {
		select {
		case msg := <-s.send:
			_ = t.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = t.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = t.SetWriteDeadline(time.Now().Add(writeWait))
			_ = t.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
