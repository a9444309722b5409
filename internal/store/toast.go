package store

import (
	"time"

	"github.com/jinga80/medical-law/internal/models"
	"github.com/jinga80/medical-law/internal/sched"

	"github.com/google/uuid"
)

const (
	DefaultToastTTL       = 5 * time.Second
	DefaultUrgentToastTTL = 10 * time.Second
)

type ToastOptions struct {
	TTL       time.Duration
	UrgentTTL time.Duration
	Timers    sched.Scheduler
	Now       func() time.Time
	OnChange  func()
}

// ToastStore 保存弹出提示，每条按 id 挂一个自动关闭计时器。
type ToastStore struct {
	items     []models.Toast
	timers    *sched.Keyed
	ttl       time.Duration
	urgentTTL time.Duration
	now       func() time.Time
	onChange  func()
}

func NewToastStore(opts ToastOptions) *ToastStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultToastTTL
	}
	if opts.UrgentTTL <= 0 {
		opts.UrgentTTL = DefaultUrgentToastTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnChange == nil {
		opts.OnChange = func() {}
	}
	return &ToastStore{
		timers:    sched.NewKeyed(opts.Timers),
		ttl:       opts.TTL,
		urgentTTL: opts.UrgentTTL,
		now:       opts.Now,
		onChange:  opts.OnChange,
	}
}

// Push 分配本地 id 并按紧急程度安排自动关闭，返回该 id。
func (s *ToastStore) Push(t models.Toast) string {
	t.ID = uuid.NewString()
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now()
	}
	ttl := s.ttl
	if t.Urgent {
		ttl = s.urgentTTL
	}
	s.items = append(s.items, t)
	id := t.ID
	s.timers.Schedule(id, ttl, func() { s.remove(id) })
	s.onChange()
	return id
}

// Dismiss 手动关闭一条提示。
func (s *ToastStore) Dismiss(id string) bool {
	s.timers.Cancel(id)
	return s.remove(id)
}

func (s *ToastStore) remove(id string) bool {
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.onChange()
			return true
		}
	}
	return false
}

func (s *ToastStore) Items() []models.Toast {
	return append([]models.Toast(nil), s.items...)
}

func (s *ToastStore) Len() int { return len(s.items) }

// Close 取消所有计时器，不触发渲染。
func (s *ToastStore) Close() {
	s.timers.CancelAll()
}
