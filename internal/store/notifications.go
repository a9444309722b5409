// Package store 保存界面状态。所有 store 只在事件循环上访问，因此不加锁；
// 每次实际改变状态后恰好回调一次 onChange，无变化的操作不回调。
package store

import (
	"github.com/jinga80/medical-law/internal/models"
)

const DefaultCapacity = 10

// NotificationStore 保存最近的通知窗口与未读计数。未读计数以服务端为准，
// 本地已读只是乐观更新。
type NotificationStore struct {
	capacity int
	items    []models.Notification // newest first
	unread   int
	stats    models.NotificationStats
	hasStats bool
	onChange func()
}

func NewNotificationStore(capacity int, onChange func()) *NotificationStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if onChange == nil {
		onChange = func() {}
	}
	return &NotificationStore{capacity: capacity, onChange: onChange}
}

// ApplyUnreadCount 用服务端的未读数覆盖本地计数。
func (s *NotificationStore) ApplyUnreadCount(n int) bool {
	if n < 0 {
		n = 0
	}
	if n == s.unread {
		return false
	}
	s.unread = n
	s.onChange()
	return true
}

// Add 把通知插到最前，未读数加一，超出容量的旧通知被淘汰。
// 同一 id 重复推送时替换旧条目，不重复计数。
func (s *NotificationStore) Add(n models.Notification) {
	if i := s.index(n.ID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.items = append([]models.Notification{n}, s.items...)
		s.onChange()
		return
	}
	s.items = append([]models.Notification{n}, s.items...)
	if len(s.items) > s.capacity {
		s.items = s.items[:s.capacity]
	}
	s.unread++
	s.onChange()
}

// MarkRead 把窗口中未读的条目标为已读并减少计数，重复调用无副作用。
func (s *NotificationStore) MarkRead(id models.ID) bool {
	i := s.index(id)
	if i < 0 || s.items[i].Read {
		return false
	}
	s.items[i].Read = true
	if s.unread > 0 {
		s.unread--
	}
	s.onChange()
	return true
}

// MarkAllRead 全部标为已读并把计数清零，等待下一次 unread_count 校正。
func (s *NotificationStore) MarkAllRead() bool {
	changed := s.unread != 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed = true
		}
	}
	s.unread = 0
	if changed {
		s.onChange()
	}
	return changed
}

func (s *NotificationStore) ApplyStats(st models.NotificationStats) bool {
	if s.hasStats && s.stats == st {
		return false
	}
	s.stats = st
	s.hasStats = true
	s.onChange()
	return true
}

func (s *NotificationStore) Unread() int { return s.unread }

func (s *NotificationStore) Len() int { return len(s.items) }

func (s *NotificationStore) Capacity() int { return s.capacity }

// Items 返回从新到旧的副本。
func (s *NotificationStore) Items() []models.Notification {
	return append([]models.Notification(nil), s.items...)
}

func (s *NotificationStore) Get(id models.ID) (models.Notification, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return models.Notification{}, false
}

func (s *NotificationStore) Stats() (models.NotificationStats, bool) {
	return s.stats, s.hasStats
}

func (s *NotificationStore) index(id models.ID) int {
	if id == "" {
		return -1
	}
	for i, n := range s.items {
		if n.ID == id {
			return i
		}
	}
	return -1
}
