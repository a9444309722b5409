// Package sched 把所有客户端状态变更串行化到单个 goroutine 上，并提供投递回该 goroutine 的可取消计时器。
package sched

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped 循环退出后 Do 返回该错误。
var ErrStopped = errors.New("loop stopped")

// Executor 接收要在循环 goroutine 上执行的任务。
type Executor interface {
	Post(fn func())
}

// Loop 按到达顺序逐个执行投递的闭包。
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{queue: make(chan func(), buffer), done: make(chan struct{})}
}

// Post 把 fn 入队。循环停止后直接丢弃，不会阻塞。
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Do 投递 fn 并等待执行完成，供循环外的调用方使用。
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case <-l.done:
		return ErrStopped
	case l.queue <- func() { defer close(finished); fn() }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run 处理任务直到 ctx 取消或调用 Stop。
func (l *Loop) Run(ctx context.Context) {
	defer l.Stop()
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return
		case <-l.done:
			return
		}
	}
}

func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *Loop) Done() <-chan struct{} { return l.done }
