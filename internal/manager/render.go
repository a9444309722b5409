package manager

import (
	"strings"

	"github.com/jinga80/medical-law/internal/store"
	"github.com/jinga80/medical-law/internal/view"
	"github.com/jinga80/medical-law/internal/ws"
)

// 每个片段只由下面一个函数写入。

func (m *Manager) renderNotifications() {
	now := m.deps.Now()
	m.deps.Sink.Set(view.BadgeID, view.Badge(m.notes.Unread()))
	m.deps.Sink.Set(view.NotificationListID, view.NotificationList(m.notes.Items(), now))
	m.deps.Sink.Set(view.StatsID, view.NotificationStats(m.notes.Stats()))
}

func (m *Manager) renderToasts() {
	m.deps.Sink.Set(view.ToastsID, view.Toasts(m.toasts.Items(), m.deps.Now()))
}

func (m *Manager) renderWorkflows() {
	m.deps.Sink.Set(view.WorkflowID, view.Workflows(m.board.Items()))
}

func (m *Manager) renderStatus() {
	if m.notifications == nil || m.workflow == nil {
		return
	}
	var b strings.Builder
	b.WriteString(view.ConnectionStatus("알림", m.notifications.State().String()))
	b.WriteString(view.ConnectionStatus("워크플로우", m.workflow.State().String()))
	m.deps.Sink.Set(view.StatusID, b.String())
}

func (m *Manager) renderRoom(r *room, c store.RoomChange) {
	if cur, ok := m.rooms[r.id]; !ok || cur != r {
		return
	}
	if c.Has(store.ChangeMessages) {
		m.deps.Sink.Set(view.RoomMessagesID(r.id), view.RoomMessages(r.store.Messages(), m.cfg.UserID, m.deps.Now()))
	}
	if c.Has(store.ChangeParticipants) {
		m.deps.Sink.Set(view.RoomParticipantsID(r.id), view.Participants(r.store.Participants()))
	}
	if c.Has(store.ChangeTyping) {
		m.deps.Sink.Set(view.RoomTypingID(r.id), view.Typing(r.store.Typist()))
	}
	if c.Has(store.ChangeScroll) {
		m.deps.Sink.ScrollToBottom(view.RoomMessagesID(r.id))
	}
}

func (m *Manager) renderRoomStatus(r *room, s ws.State) {
	if cur, ok := m.rooms[r.id]; !ok || cur != r {
		return
	}
	m.deps.Sink.Set(view.RoomStatusID(r.id), view.ConnectionStatus("채팅", s.String()))
}
