package sched

import (
	"sort"
	"sync"
	"time"
)

// Timer 是触发前可以取消的定时回调。
type Timer interface {
	// Stop 取消回调。回调已执行或已取消时返回 false。
	Stop() bool
}

// Scheduler 创建的定时器回调都在事件循环 goroutine 上执行。
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// LoopScheduler 用 time.AfterFunc 计时，到期后把回调投递给 Executor。
// Stop 只能在事件循环上调用。
type LoopScheduler struct {
	Exec Executor
}

type loopTimer struct {
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (s LoopScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.Exec.Post(func() {
			// 运行时定时器可能先于循环上的 Stop 到期
			if t.stopped {
				return
			}
			t.fired = true
			fn()
		})
	})
	return t
}

func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

// Keyed 每个 key 至多一个待触发定时器，重新调度会先停掉旧的。
type Keyed struct {
	s      Scheduler
	timers map[string]Timer
}

func NewKeyed(s Scheduler) *Keyed {
	return &Keyed{s: s, timers: make(map[string]Timer)}
}

func (k *Keyed) Schedule(key string, d time.Duration, fn func()) {
	if prev, ok := k.timers[key]; ok {
		prev.Stop()
		delete(k.timers, key)
	}
	var t Timer
	t = k.s.AfterFunc(d, func() {
		if cur, ok := k.timers[key]; ok && cur == t {
			delete(k.timers, key)
		}
		fn()
	})
	k.timers[key] = t
}

// Cancel 停掉 key 对应的定时器。
func (k *Keyed) Cancel(key string) bool {
	t, ok := k.timers[key]
	if !ok {
		return false
	}
	delete(k.timers, key)
	return t.Stop()
}

func (k *Keyed) Active(key string) bool {
	_, ok := k.timers[key]
	return ok
}

func (k *Keyed) Len() int { return len(k.timers) }

func (k *Keyed) CancelAll() {
	for key, t := range k.timers {
		t.Stop()
		delete(k.timers, key)
	}
}

// Manual 是由 Advance 驱动的 Scheduler，回调在调用 Advance 的 goroutine 上同步执行。
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	m    *Manual
	at   time.Duration
	seq  int
	fn   func()
	done bool
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.m.removeLocked(t)
	return true
}

func (m *Manual) removeLocked(t *manualTimer) {
	for i, cur := range m.timers {
		if cur == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Advance 把时钟推进 d，按到期顺序触发定时器。回调里新建且已到期的定时器在同一次调用中触发。
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	for {
		m.mu.Lock()
		sort.Slice(m.timers, func(i, j int) bool {
			if m.timers[i].at == m.timers[j].at {
				return m.timers[i].seq < m.timers[j].seq
			}
			return m.timers[i].at < m.timers[j].at
		})
		if len(m.timers) == 0 || m.timers[0].at > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		t.done = true
		m.now = t.at
		m.mu.Unlock()
		t.fn()
	}
}

// Pending 返回尚未触发的定时器数。
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Now 返回已流逝的虚拟时间。
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
