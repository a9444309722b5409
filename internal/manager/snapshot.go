package manager

import (
	"github.com/jinga80/medical-law/internal/models"
)

type Snapshot struct {
	Unread        int                       `json:"unread"`
	Notifications []models.Notification     `json:"notifications"`
	Stats         *models.NotificationStats `json:"stats,omitempty"`
	Workflows     []models.Workflow         `json:"workflows"`
	Connections   map[string]string         `json:"connections"`
	Rooms         []RoomSnapshot            `json:"rooms"`
}

type RoomSnapshot struct {
	ID           string               `json:"id"`
	State        string               `json:"state"`
	Connection   string               `json:"connection"`
	Participants []models.Participant `json:"participants"`
	Messages     int                  `json:"messages"`
	Typing       string               `json:"typing,omitempty"`
}

// Snapshot 复制当前状态供 HTTP 层读取，必须在事件循环上调用。
func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{
		Unread:        m.notes.Unread(),
		Notifications: m.notes.Items(),
		Workflows:     m.board.Items(),
		Connections: map[string]string{
			string(models.ChannelNotifications): m.notifications.State().String(),
			string(models.ChannelWorkflow):      m.workflow.State().String(),
		},
		Rooms: make([]RoomSnapshot, 0, len(m.rooms)),
	}
	if st, ok := m.notes.Stats(); ok {
		s.Stats = &st
	}
	for _, id := range m.RoomIDs() {
		r := m.rooms[id]
		typist, _ := r.store.Typist()
		s.Rooms = append(s.Rooms, RoomSnapshot{
			ID:           id,
			State:        r.store.State().String(),
			Connection:   r.conn.State().String(),
			Participants: r.store.Participants(),
			Messages:     r.store.Len(),
			Typing:       typist,
		})
	}
	return s
}
