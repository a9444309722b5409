// Package manager 是实时客户端的组合根：持有通知、流程两条连接和按房间 id
// 登记的聊天连接，把路由结果写进对应 store，并把用户操作转发给连接。
// 除 New 之外的所有方法都必须在事件循环上调用。
package manager

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jinga80/medical-law/internal/models"
	"github.com/jinga80/medical-law/internal/router"
	"github.com/jinga80/medical-law/internal/sched"
	"github.com/jinga80/medical-law/internal/store"
	"github.com/jinga80/medical-law/internal/view"
	"github.com/jinga80/medical-law/internal/ws"

	"github.com/rs/zerolog"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrUnknownRoom  = errors.New("room not joined")
	ErrClosed       = errors.New("manager closed")
)

type Config struct {
	Origin         string
	Header         http.Header
	UserID         models.ID
	Reconnect      ws.Policy
	TypingTimeout  time.Duration
	Capacity       int
	ToastTTL       time.Duration
	UrgentToastTTL time.Duration
}

type Deps struct {
	Exec   sched.Executor
	Timers sched.Scheduler
	Dialer ws.Dialer
	Sink   view.Sink
	Now    func() time.Time
	Logger zerolog.Logger
}

type Manager struct {
	cfg    Config
	deps   Deps
	log    zerolog.Logger
	closed bool

	notifications *ws.Connection
	workflow      *ws.Connection
	notifyRouter  *router.Router[router.NotificationEvent]
	flowRouter    *router.Router[router.WorkflowEvent]

	notes  *store.NotificationStore
	toasts *store.ToastStore
	board  *store.WorkflowBoard

	rooms     map[string]*room
	outTyping *sched.Keyed
}

// room 是一次加入的会话，离开或断开后从登记表移除，不会复用。
type room struct {
	id     string
	conn   *ws.Connection
	store  *store.RoomStore
	router *router.Router[router.ChatEvent]
	typing bool
}

func New(cfg Config, deps Deps) (*Manager, error) {
	if deps.Exec == nil {
		return nil, errors.New("manager: executor is required")
	}
	if deps.Timers == nil {
		deps.Timers = sched.LoopScheduler{Exec: deps.Exec}
	}
	if deps.Dialer == nil {
		deps.Dialer = ws.GorillaDialer{}
	}
	if deps.Sink == nil {
		deps.Sink = view.NewDocument()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.TypingTimeout <= 0 {
		cfg.TypingTimeout = store.DefaultTypingTimeout
	}
	m := &Manager{
		cfg:       cfg,
		deps:      deps,
		log:       deps.Logger,
		rooms:     make(map[string]*room),
		outTyping: sched.NewKeyed(deps.Timers),
	}
	m.notes = store.NewNotificationStore(cfg.Capacity, m.renderNotifications)
	m.toasts = store.NewToastStore(store.ToastOptions{
		TTL:       cfg.ToastTTL,
		UrgentTTL: cfg.UrgentToastTTL,
		Timers:    deps.Timers,
		Now:       deps.Now,
		OnChange:  m.renderToasts,
	})
	m.board = store.NewWorkflowBoard(m.renderWorkflows)
	m.notifyRouter = router.NewNotificationRouter(m, m.log)
	m.flowRouter = router.NewWorkflowRouter(m, m.log)

	var err error
	m.notifications, err = m.newConnection(ws.Notifications(), cfg.Reconnect, m.notifyRouter.Dispatch)
	if err != nil {
		return nil, err
	}
	m.workflow, err = m.newConnection(ws.Workflow(), ws.Policy{}, m.flowRouter.Dispatch)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) newConnection(ep ws.Endpoint, policy ws.Policy, dispatch func([]byte) bool) (*ws.Connection, error) {
	return ws.New(ws.Options{
		Endpoint:      ep,
		Origin:        m.cfg.Origin,
		Header:        m.cfg.Header,
		Dialer:        m.deps.Dialer,
		Exec:          m.deps.Exec,
		Timers:        m.deps.Timers,
		Policy:        policy,
		Logger:        m.log,
		OnMessage:     func(frame []byte) { dispatch(frame) },
		OnStateChange: func(ws.State) { m.renderStatus() },
	})
}

// Start 打开通知与流程连接并渲染初始片段。
func (m *Manager) Start() error {
	if m.closed {
		return ErrClosed
	}
	m.renderNotifications()
	m.renderToasts()
	m.renderWorkflows()
	m.renderStatus()
	if err := m.notifications.Open(); err != nil {
		return fmt.Errorf("open notifications: %w", err)
	}
	if err := m.workflow.Open(); err != nil {
		return fmt.Errorf("open workflow: %w", err)
	}
	return nil
}

// Close 按固定顺序关闭所有连接：通知、流程、按 id 排序的房间。可重复调用。
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.notifications.Close()
	m.workflow.Close()
	for _, id := range m.RoomIDs() {
		r := m.rooms[id]
		r.conn.Close()
		r.store.Leave()
		delete(m.rooms, id)
	}
	m.outTyping.CancelAll()
	m.toasts.Close()
	m.log.Info().Msg("realtime manager closed")
}

func (m *Manager) MarkRead(id models.ID) error {
	if err := m.notifications.Send(ws.Message{Type: "mark_as_read", NotificationID: id}); err != nil {
		m.log.Debug().Err(err).Str("notification_id", string(id)).Msg("mark read rejected")
		return err
	}
	m.notes.MarkRead(id)
	return nil
}

// MarkAllRead 本地计数立即清零，服务端之后推送的 unread_count 直接覆盖。
func (m *Manager) MarkAllRead() error {
	if err := m.notifications.Send(ws.Message{Type: "mark_all_as_read"}); err != nil {
		m.log.Debug().Err(err).Msg("mark all read rejected")
		return err
	}
	m.notes.MarkAllRead()
	return nil
}

func (m *Manager) RequestStats() error {
	return m.notifications.Send(ws.Message{Type: "get_notification_stats"})
}

// lookup 按去掉首尾空白后的 id 查找已加入的房间。
func (m *Manager) lookup(id string) (*room, bool) {
	r, ok := m.rooms[strings.TrimSpace(id)]
	return r, ok
}

// JoinRoom 懒创建房间会话并发起连接。已加入的房间直接返回。
func (m *Manager) JoinRoom(id string) error {
	if m.closed {
		return ErrClosed
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("join room: %w", ErrUnknownRoom)
	}
	if _, ok := m.rooms[id]; ok {
		return nil
	}
	r := &room{id: id}
	r.store = store.NewRoomStore(id, store.RoomOptions{
		TypingTimeout: m.cfg.TypingTimeout,
		Timers:        m.deps.Timers,
		Now:           m.deps.Now,
		OnChange:      func(c store.RoomChange) { m.renderRoom(r, c) },
	})
	r.router = router.NewChatRouter(id, chatHandler{m: m, r: r}, m.log)
	conn, err := ws.New(ws.Options{
		Endpoint:       ws.Chat(id),
		Origin:         m.cfg.Origin,
		Header:         m.cfg.Header,
		Dialer:         m.deps.Dialer,
		Exec:           m.deps.Exec,
		Timers:         m.deps.Timers,
		Logger:         m.log,
		OnMessage:      func(frame []byte) { r.router.Dispatch(frame) },
		OnConnected:    func() { m.roomConnected(r) },
		OnDisconnected: func(err error) { m.roomLost(r, err) },
		OnStateChange:  func(s ws.State) { m.renderRoomStatus(r, s) },
	})
	if err != nil {
		return fmt.Errorf("join room %s: %w", id, err)
	}
	r.conn = conn
	m.rooms[id] = r
	m.renderRoom(r, store.ChangeMessages|store.ChangeParticipants|store.ChangeTyping)
	m.renderRoomStatus(r, conn.State())
	return conn.Open()
}

// LeaveRoom 关闭房间连接并移除其片段。
func (m *Manager) LeaveRoom(id string) error {
	r, ok := m.lookup(id)
	if !ok {
		return ErrUnknownRoom
	}
	id = r.id
	m.outTyping.Cancel(id)
	r.conn.Close()
	r.store.Leave()
	delete(m.rooms, id)
	m.deps.Sink.Remove(view.RoomMessagesID(id), view.RoomParticipantsID(id), view.RoomTypingID(id), view.RoomStatusID(id))
	return nil
}

// SendMessage 先做本地检查：空内容或连接未打开时不会发送任何帧。
func (m *Manager) SendMessage(id, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	r, ok := m.lookup(id)
	if !ok {
		return ErrUnknownRoom
	}
	if err := r.conn.Send(ws.Message{Type: "chat_message", Content: content}); err != nil {
		m.log.Debug().Err(err).Str("room_id", r.id).Msg("send message rejected")
		return err
	}
	_ = m.stopTyping(r)
	return nil
}

// Typing 每轮输入只发一次 typing，超时后自动补发 stop_typing。
func (m *Manager) Typing(id string) error {
	r, ok := m.lookup(id)
	if !ok {
		return ErrUnknownRoom
	}
	if !r.typing {
		if err := r.conn.Send(ws.Message{Type: "typing"}); err != nil {
			return err
		}
		r.typing = true
	}
	m.outTyping.Schedule(r.id, m.cfg.TypingTimeout, func() { _ = m.stopTyping(r) })
	return nil
}

func (m *Manager) StopTyping(id string) error {
	r, ok := m.lookup(id)
	if !ok {
		return ErrUnknownRoom
	}
	return m.stopTyping(r)
}

func (m *Manager) stopTyping(r *room) error {
	m.outTyping.Cancel(r.id)
	if !r.typing {
		return nil
	}
	r.typing = false
	return r.conn.Send(ws.Message{Type: "stop_typing"})
}

func (m *Manager) RequestHistory(id string) error {
	r, ok := m.lookup(id)
	if !ok {
		return ErrUnknownRoom
	}
	return r.conn.Send(ws.Message{Type: "get_chat_history"})
}

func (m *Manager) roomConnected(r *room) {
	r.store.Activate()
	if err := r.conn.Send(ws.Message{Type: "get_chat_history"}); err != nil {
		m.log.Warn().Err(err).Str("room_id", r.id).Msg("request chat history")
	}
}

// roomLost 聊天连接不自动重连：留下一条系统提示，房间进入 Left 并从登记表移除。
func (m *Manager) roomLost(r *room, err error) {
	if cur, ok := m.rooms[r.id]; !ok || cur != r {
		return
	}
	m.log.Warn().Err(err).Str("room_id", r.id).Msg("chat connection lost")
	m.outTyping.Cancel(r.id)
	r.store.AddSystem(models.EntryError, "채팅 연결이 끊어졌습니다.")
	r.store.Leave()
	r.conn.Close()
	delete(m.rooms, r.id)
}

func (m *Manager) markMessagesRead(r *room) {
	if err := r.conn.Send(ws.Message{Type: "mark_messages_read"}); err != nil {
		m.log.Debug().Err(err).Str("room_id", r.id).Msg("mark messages read skipped")
	}
}

// RoomIDs 返回已登记房间的有序 id。
func (m *Manager) RoomIDs() []string {
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) Room(id string) (*store.RoomStore, bool) {
	r, ok := m.lookup(id)
	if !ok {
		return nil, false
	}
	return r.store, true
}

func (m *Manager) Notifications() *store.NotificationStore { return m.notes }

func (m *Manager) Toasts() *store.ToastStore { return m.toasts }

func (m *Manager) Workflows() *store.WorkflowBoard { return m.board }
