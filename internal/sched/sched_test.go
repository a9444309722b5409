package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoop_RunsInOrder(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(ctx, func() {}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Errorf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestLoop_DoAfterStop(t *testing.T) {
	l := NewLoop(1)
	l.Stop()
	if err := l.Do(context.Background(), func() {}); err != ErrStopped {
		t.Errorf("Do() error = %v, want %v", err, ErrStopped)
	}
	// must not block
	l.Post(func() {})
}

func TestLoopScheduler_StopBeforeFire(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	s := LoopScheduler{Exec: l}
	var fired atomic.Int32
	var tm Timer
	_ = l.Do(ctx, func() {
		tm = s.AfterFunc(20*time.Millisecond, func() { fired.Add(1) })
	})
	var stopped bool
	_ = l.Do(ctx, func() { stopped = tm.Stop() })
	if !stopped {
		t.Fatal("Stop() = false, want true")
	}
	time.Sleep(50 * time.Millisecond)
	_ = l.Do(ctx, func() {})
	if fired.Load() != 0 {
		t.Errorf("callback fired %d times after Stop", fired.Load())
	}
}

func TestLoopScheduler_Fires(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	s := LoopScheduler{Exec: l}
	fired := make(chan struct{})
	l.Post(func() { s.AfterFunc(time.Millisecond, func() { close(fired) }) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestKeyed_RescheduleCancelsPrevious(t *testing.T) {
	m := NewManual()
	k := NewKeyed(m)
	calls := 0
	k.Schedule("u1", 3*time.Second, func() { calls++ })
	m.Advance(2 * time.Second)
	k.Schedule("u1", 3*time.Second, func() { calls++ })
	if m.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", m.Pending())
	}
	m.Advance(2 * time.Second)
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 before refreshed deadline", calls)
	}
	m.Advance(time.Second)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if k.Active("u1") {
		t.Error("Active(u1) = true after firing")
	}
}

func TestKeyed_Cancel(t *testing.T) {
	m := NewManual()
	k := NewKeyed(m)
	calls := 0
	k.Schedule("a", time.Second, func() { calls++ })
	k.Schedule("b", time.Second, func() { calls++ })
	if !k.Cancel("a") {
		t.Error("Cancel(a) = false, want true")
	}
	if k.Cancel("a") {
		t.Error("second Cancel(a) = true, want false")
	}
	m.Advance(time.Second)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	k.Schedule("c", time.Second, func() { calls++ })
	k.CancelAll()
	m.Advance(time.Second)
	if calls != 1 || k.Len() != 0 {
		t.Errorf("after CancelAll calls = %d len = %d, want 1 and 0", calls, k.Len())
	}
}

func TestManual_ChainedTimers(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(time.Second, func() {
		order = append(order, "first")
		m.AfterFunc(time.Second, func() { order = append(order, "second") })
	})
	m.Advance(5 * time.Second)
	if len(order) != 2 || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
	if m.Now() != 5*time.Second {
		t.Errorf("Now() = %v, want 5s", m.Now())
	}
}
