package store

import (
	"time"

	"github.com/jinga80/medical-law/internal/models"
	"github.com/jinga80/medical-law/internal/sched"

	"github.com/google/uuid"
)

const DefaultTypingTimeout = 3 * time.Second

type RoomState int

const (
	Joining RoomState = iota
	Active
	Left
)

func (s RoomState) String() string {
	switch s {
	case Active:
		return "active"
	case Left:
		return "left"
	default:
		return "joining"
	}
}

// RoomChange 标明一次变更影响了房间的哪些片段。
type RoomChange uint8

const (
	ChangeMessages RoomChange = 1 << iota
	ChangeParticipants
	ChangeTyping
	ChangeState
	// ChangeScroll 要求视图滚动到底部。
	ChangeScroll
)

func (c RoomChange) Has(f RoomChange) bool { return c&f != 0 }

type typist struct {
	name string
	seq  uint64
}

type RoomOptions struct {
	TypingTimeout time.Duration
	Timers        sched.Scheduler
	Now           func() time.Time
	OnChange      func(RoomChange)
}

// RoomStore 保存一个房间的消息、成员与输入状态。Left 是终态，之后的变更全部忽略。
type RoomStore struct {
	id            string
	state         RoomState
	messages      []models.ChatMessage
	participants  map[models.ID]models.Participant
	order         []models.ID
	typing        map[models.ID]typist
	typingTimers  *sched.Keyed
	typingTimeout time.Duration
	seq           uint64
	now           func() time.Time
	onChange      func(RoomChange)
}

func NewRoomStore(id string, opts RoomOptions) *RoomStore {
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = DefaultTypingTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnChange == nil {
		opts.OnChange = func(RoomChange) {}
	}
	return &RoomStore{
		id:            id,
		participants:  make(map[models.ID]models.Participant),
		typing:        make(map[models.ID]typist),
		typingTimers:  sched.NewKeyed(opts.Timers),
		typingTimeout: opts.TypingTimeout,
		now:           opts.Now,
		onChange:      opts.OnChange,
	}
}

func (r *RoomStore) ID() string { return r.id }

func (r *RoomStore) State() RoomState { return r.state }

// Activate 在连接建立后把房间从 Joining 切到 Active。
func (r *RoomStore) Activate() bool {
	if r.state != Joining {
		return false
	}
	r.state = Active
	r.onChange(ChangeState)
	return true
}

// Leave 进入终态并取消所有输入计时器。
func (r *RoomStore) Leave() bool {
	if r.state == Left {
		return false
	}
	r.state = Left
	r.typingTimers.CancelAll()
	r.typing = make(map[models.ID]typist)
	r.onChange(ChangeState | ChangeTyping)
	return true
}

// LoadHistory 整体替换消息记录。
func (r *RoomStore) LoadHistory(msgs []models.ChatMessage) bool {
	if r.state == Left {
		return false
	}
	r.messages = append([]models.ChatMessage(nil), msgs...)
	r.onChange(ChangeMessages | ChangeScroll)
	return true
}

func (r *RoomStore) Append(msg models.ChatMessage) bool {
	if r.state == Left {
		return false
	}
	if msg.RoomID == "" {
		msg.RoomID = r.id
	}
	r.messages = append(r.messages, msg)
	r.onChange(ChangeMessages | ChangeScroll)
	return true
}

// AddSystem 在消息流中插入一条系统提示（加入、离开、错误）。
func (r *RoomStore) AddSystem(kind models.EntryKind, text string) bool {
	return r.Append(models.ChatMessage{
		ID:        models.ID(uuid.NewString()),
		RoomID:    r.id,
		Content:   text,
		Timestamp: r.now(),
		Kind:      kind,
	})
}

// SetTyping 记录或刷新某个用户的输入状态，超时后自动清除；typing 为 false 时立即清除。
func (r *RoomStore) SetTyping(userID models.ID, name string, typing bool) bool {
	if r.state == Left {
		return false
	}
	key := string(userID)
	if !typing {
		r.typingTimers.Cancel(key)
		if _, ok := r.typing[userID]; !ok {
			return false
		}
		delete(r.typing, userID)
		r.onChange(ChangeTyping)
		return true
	}
	r.seq++
	r.typing[userID] = typist{name: name, seq: r.seq}
	r.typingTimers.Schedule(key, r.typingTimeout, func() { r.expireTyping(userID) })
	r.onChange(ChangeTyping)
	return true
}

func (r *RoomStore) expireTyping(userID models.ID) {
	if _, ok := r.typing[userID]; !ok || r.state == Left {
		return
	}
	delete(r.typing, userID)
	r.onChange(ChangeTyping)
}

// Typist 返回最近一次更新的正在输入的用户名。
func (r *RoomStore) Typist() (string, bool) {
	var best typist
	found := false
	for _, t := range r.typing {
		if !found || t.seq > best.seq {
			best, found = t, true
		}
	}
	return best.name, found
}

func (r *RoomStore) IsTyping(userID models.ID) bool {
	_, ok := r.typing[userID]
	return ok
}

func (r *RoomStore) TypingCount() int { return len(r.typing) }

// AddParticipant 按 user id 去重，已存在时返回 false。
func (r *RoomStore) AddParticipant(p models.Participant) bool {
	if r.state == Left {
		return false
	}
	if _, ok := r.participants[p.UserID]; ok {
		return false
	}
	r.participants[p.UserID] = p
	r.order = append(r.order, p.UserID)
	r.onChange(ChangeParticipants)
	return true
}

func (r *RoomStore) RemoveParticipant(userID models.ID) (models.Participant, bool) {
	if r.state == Left {
		return models.Participant{}, false
	}
	p, ok := r.participants[userID]
	if !ok {
		return models.Participant{}, false
	}
	delete(r.participants, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.onChange(ChangeParticipants)
	return p, true
}

// ReplaceParticipants 用 participants_list 整体替换成员，重复的 user id 只保留第一条。
func (r *RoomStore) ReplaceParticipants(ps []models.Participant) bool {
	if r.state == Left {
		return false
	}
	r.participants = make(map[models.ID]models.Participant, len(ps))
	r.order = r.order[:0]
	for _, p := range ps {
		if _, ok := r.participants[p.UserID]; ok {
			continue
		}
		r.participants[p.UserID] = p
		r.order = append(r.order, p.UserID)
	}
	r.onChange(ChangeParticipants)
	return true
}

func (r *RoomStore) Participant(userID models.ID) (models.Participant, bool) {
	p, ok := r.participants[userID]
	return p, ok
}

// Participants 按加入顺序返回成员。
func (r *RoomStore) Participants() []models.Participant {
	out := make([]models.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.participants[id])
	}
	return out
}

func (r *RoomStore) Messages() []models.ChatMessage {
	return append([]models.ChatMessage(nil), r.messages...)
}

func (r *RoomStore) Len() int { return len(r.messages) }
