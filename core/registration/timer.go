package registration

import (
	"sync"
	"time"
)

var nowFunc = time.Now

type (
	// TaskHandle is a scheduled callback that may still be cancelled.
	TaskHandle interface {
		// Cancel is a no-op once the task ran.
		Cancel()
	}

	// ScheduleFunc runs fn once, after d, on another goroutine than the caller.
	ScheduleFunc func(d time.Duration, fn func()) TaskHandle

	timerHandle struct {
		timer *time.Timer
	}
)

func (h timerHandle) Cancel() { h.timer.Stop() }

// AfterFunc is the default ScheduleFunc, backed by time.AfterFunc.
func AfterFunc(d time.Duration, fn func()) TaskHandle {
	return timerHandle{timer: time.AfterFunc(d, fn)}
}

// AutoCloseTimer calls its handler when the watched registration reaches its end date.
// The handler runs on the scheduler's goroutine, at most once per (ID, EndDate).
type AutoCloseTimer struct {
	schedule ScheduleFunc
	onExpire func(Registration)

	mu         sync.Mutex
	handle     TaskHandle
	gen        uint64 // bumped on every (re|dis)arm; stale callbacks compare against it
	watchedID  string
	watchedEnd time.Time
}

func NewAutoCloseTimer(schedule ScheduleFunc, onExpire func(Registration)) *AutoCloseTimer {
	if schedule == nil {
		schedule = AfterFunc
	}
	return &AutoCloseTimer{schedule: schedule, onExpire: onExpire}
}

// Watch arms the timer against reg's end date, cancelling the previous task.
// A nil or closed reg disarms the timer. Watching the same ID and end date again is a no-op.
func (t *AutoCloseTimer) Watch(reg *Registration) {
	if reg == nil || !reg.IsOpening {
		t.Disarm()
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if reg.ID == t.watchedID && reg.EndDate.Equal(t.watchedEnd) {
		return
	}
	t.cancel()
	t.watchedID, t.watchedEnd = reg.ID, reg.EndDate

	gen := t.gen
	target := reg.Clone()
	delay := target.EndDate.Sub(nowFunc())
	if delay < 0 {
		delay = 0
	}
	t.handle = t.schedule(delay, func() { t.fire(gen, target) })
}

// Disarm cancels the pending task, if any.
func (t *AutoCloseTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancel()
	t.watchedID, t.watchedEnd = "", time.Time{}
}

// Pending reports whether a task is scheduled and has not run yet.
func (t *AutoCloseTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle != nil
}

func (t *AutoCloseTimer) cancel() {
	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}
	t.gen++
}

func (t *AutoCloseTimer) fire(gen uint64, reg Registration) {
	t.mu.Lock()
	if gen != t.gen || t.handle == nil {
		t.mu.Unlock()
		return
	}
	t.handle = nil
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(reg)
	}
}
