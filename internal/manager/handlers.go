package manager

import (
	"fmt"

	"github.com/jinga80/medical-law/internal/models"
	"github.com/jinga80/medical-law/internal/router"
)

// 通知通道

func (m *Manager) OnConnectionEstablished(e router.ConnectionEstablished) {
	m.log.Info().Str("user_id", string(e.UserID)).Str("message", e.Message).Msg("notification channel established")
}

func (m *Manager) OnUnreadCount(e router.UnreadCount) {
	m.notes.ApplyUnreadCount(e.Count)
}

// OnNotification 新通知入列并弹出提示，urgent_notification 使用紧急样式。
func (m *Manager) OnNotification(e router.NotificationReceived) {
	n := e.Notification
	m.notes.Add(n)
	m.toasts.Push(models.Toast{
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Priority:  n.Priority,
		Timestamp: n.Timestamp,
		Urgent:    e.Urgent,
		Action:    n.ActionRequired,
	})
}

func (m *Manager) OnNotificationStats(e router.StatsReceived) {
	m.notes.ApplyStats(e.Stats)
}

func (m *Manager) OnPong(router.Pong) {}

// 流程通道

func (m *Manager) OnWorkflowConnected(e router.WorkflowConnected) {
	m.log.Info().Str("message", e.Message).Msg("workflow channel established")
}

func (m *Manager) OnWorkflowStatus(e router.WorkflowStatusUpdate) {
	m.board.Update(e.Workflow)
}

func (m *Manager) OnTaskAssignment(e router.TaskAssignment) {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("%q 작업이 할당되었습니다.", e.TaskName)
	}
	m.toasts.Push(models.Toast{
		Title:     "새 작업 할당",
		Message:   msg,
		Type:      models.WorkflowStepCompleted,
		Priority:  models.PriorityNormal,
		Timestamp: e.Timestamp,
	})
}

func (m *Manager) OnDeadlineReminder(e router.DeadlineReminder) {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("%q의 마감일이 %d일 남았습니다.", e.WorkflowName, e.DaysRemaining)
	}
	m.toasts.Push(models.Toast{
		Title:     "마감일 임박",
		Message:   msg,
		Type:      models.Reminder,
		Priority:  models.PriorityHigh,
		Timestamp: e.Timestamp,
		Urgent:    true,
	})
}

// chatHandler 把一个房间的事件应用到该房间的 store。
type chatHandler struct {
	m *Manager
	r *room
}

func (h chatHandler) OnChatConnected(e router.ChatConnected) {
	h.r.store.Activate()
	h.m.log.Debug().Str("room_id", h.r.id).Str("message", e.Message).Msg("chat room established")
}

func (h chatHandler) OnParticipants(e router.ParticipantsList) {
	h.r.store.ReplaceParticipants(e.Participants)
}

func (h chatHandler) OnChatMessage(e router.ChatMessageReceived) {
	if h.r.store.Append(e.Message) {
		h.m.markMessagesRead(h.r)
	}
}

// OnUserTyping 忽略自己的输入状态回显。
func (h chatHandler) OnUserTyping(e router.UserTyping) {
	if h.m.cfg.UserID != "" && e.UserID == h.m.cfg.UserID {
		return
	}
	h.r.store.SetTyping(e.UserID, e.UserName, e.IsTyping)
}

func (h chatHandler) OnUserJoined(e router.UserJoined) {
	if h.r.store.AddParticipant(models.Participant{UserID: e.UserID, Name: e.UserName, Role: models.RoleMember}) {
		h.r.store.AddSystem(models.EntryJoin, e.UserName+"님이 참여했습니다.")
	}
}

func (h chatHandler) OnUserLeft(e router.UserLeft) {
	p, ok := h.r.store.RemoveParticipant(e.UserID)
	if !ok {
		return
	}
	name := e.UserName
	if name == "" {
		name = p.Name
	}
	h.r.store.SetTyping(e.UserID, name, false)
	h.r.store.AddSystem(models.EntryLeave, name+"님이 나갔습니다.")
}

func (h chatHandler) OnChatHistory(e router.ChatHistory) {
	h.r.store.LoadHistory(e.Messages)
	h.m.markMessagesRead(h.r)
}

func (h chatHandler) OnChatError(e router.ChatError) {
	h.m.log.Warn().Str("room_id", h.r.id).Str("error", e.Message).Msg("chat server error")
	h.r.store.AddSystem(models.EntryError, "오류: "+e.Message)
}
