// Package router 按 type 标签给入站信封分类并交给该通道的 handler。每种通道的路由表是固定的。
package router

import (
	"errors"
	"fmt"

	"github.com/jinga80/medical-law/internal/metrics"
	"github.com/jinga80/medical-law/internal/models"

	"github.com/rs/zerolog"
)

type NotificationHandler interface {
	OnConnectionEstablished(ConnectionEstablished)
	OnUnreadCount(UnreadCount)
	OnNotification(NotificationReceived)
	OnNotificationStats(StatsReceived)
	OnPong(Pong)
}

type WorkflowHandler interface {
	OnWorkflowConnected(WorkflowConnected)
	OnWorkflowStatus(WorkflowStatusUpdate)
	OnTaskAssignment(TaskAssignment)
	OnDeadlineReminder(DeadlineReminder)
}

type ChatHandler interface {
	OnChatConnected(ChatConnected)
	OnParticipants(ParticipantsList)
	OnChatMessage(ChatMessageReceived)
	OnUserTyping(UserTyping)
	OnUserJoined(UserJoined)
	OnUserLeft(UserLeft)
	OnChatHistory(ChatHistory)
	OnChatError(ChatError)
}

// Router 解码一条通道上的帧并应用到 handler。
type Router[E Event] struct {
	channel models.ChannelKind
	decode  func([]byte) (E, error)
	apply   func(E)
	log     zerolog.Logger
}

func NewNotificationRouter(h NotificationHandler, logger zerolog.Logger) *Router[NotificationEvent] {
	return &Router[NotificationEvent]{
		channel: models.ChannelNotifications,
		decode:  DecodeNotification,
		apply: func(e NotificationEvent) {
			switch ev := e.(type) {
			case ConnectionEstablished:
				h.OnConnectionEstablished(ev)
			case UnreadCount:
				h.OnUnreadCount(ev)
			case NotificationReceived:
				h.OnNotification(ev)
			case StatsReceived:
				h.OnNotificationStats(ev)
			case Pong:
				h.OnPong(ev)
			}
		},
		log: logger,
	}
}

func NewWorkflowRouter(h WorkflowHandler, logger zerolog.Logger) *Router[WorkflowEvent] {
	return &Router[WorkflowEvent]{
		channel: models.ChannelWorkflow,
		decode:  DecodeWorkflow,
		apply: func(e WorkflowEvent) {
			switch ev := e.(type) {
			case WorkflowConnected:
				h.OnWorkflowConnected(ev)
			case WorkflowStatusUpdate:
				h.OnWorkflowStatus(ev)
			case TaskAssignment:
				h.OnTaskAssignment(ev)
			case DeadlineReminder:
				h.OnDeadlineReminder(ev)
			}
		},
		log: logger,
	}
}

func NewChatRouter(roomID string, h ChatHandler, logger zerolog.Logger) *Router[ChatEvent] {
	return &Router[ChatEvent]{
		channel: models.ChannelChat,
		decode:  func(frame []byte) (ChatEvent, error) { return DecodeChat(roomID, frame) },
		apply: func(e ChatEvent) {
			switch ev := e.(type) {
			case ChatConnected:
				h.OnChatConnected(ev)
			case ParticipantsList:
				h.OnParticipants(ev)
			case ChatMessageReceived:
				h.OnChatMessage(ev)
			case UserTyping:
				h.OnUserTyping(ev)
			case UserJoined:
				h.OnUserJoined(ev)
			case UserLeft:
				h.OnUserLeft(ev)
			case ChatHistory:
				h.OnChatHistory(ev)
			case ChatError:
				h.OnChatError(ev)
			}
		},
		log: logger.With().Str("room_id", roomID).Logger(),
	}
}

// Dispatch 返回帧是否送达 handler。格式错误或无法路由的帧记日志后丢弃。
func (r *Router[E]) Dispatch(frame []byte) (ok bool) {
	ev, err := r.decode(frame)
	if err != nil {
		reason := dropReason(err)
		metrics.EnvelopesDropped.WithLabelValues(string(r.channel), reason).Inc()
		r.log.Warn().Err(err).Str("channel", string(r.channel)).Str("reason", reason).Msg("drop envelope")
		return false
	}
	defer func() {
		if p := recover(); p != nil {
			metrics.EnvelopesDropped.WithLabelValues(string(r.channel), "handler_panic").Inc()
			r.log.Error().Err(fmt.Errorf("%v", p)).Str("channel", string(r.channel)).Str("type", ev.Type()).Msg("handler panic")
			ok = false
		}
	}()
	metrics.EnvelopesTotal.WithLabelValues(string(r.channel), ev.Type()).Inc()
	r.apply(ev)
	return true
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingType):
		return "missing_type"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	default:
		return "malformed"
	}
}
