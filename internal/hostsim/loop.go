package hostsim

import (
	"container/heap"
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"fireshow/internal/host"
	logx "fireshow/pkg/logx"
)

// Loop is the simulation thread. Every timer callback and every function
// passed to Post or Do runs on it, one at a time.
//
// A Loop runs either on wall-clock time (Run) or on virtual time driven by
// Advance, which tests use to step timers deterministically.
type Loop struct {
	log logx.Logger

	mu    sync.Mutex
	now   time.Duration
	queue timerQueue
	seq   uint64

	running   atomic.Bool
	started   chan struct{}
	startOnce sync.Once
	posted    chan func()
	wake      chan struct{}
}

func NewLoop(log logx.Logger) *Loop {
	return &Loop{
		log:     log,
		started: make(chan struct{}),
		posted:  make(chan func(), 64),
		wake:    make(chan struct{}, 1),
	}
}

type timerItem struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
	index     int
}

type timerQueue []*timerItem

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *timerQueue) Push(x any) {
	it := x.(*timerItem)
	it.index = len(*q)
	*q = append(*q, it)
}
func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}

type loopTimer struct {
	l  *Loop
	it *timerItem
}

func (t *loopTimer) Destroy() {
	t.l.mu.Lock()
	defer t.l.mu.Unlock()
	if t.it.cancelled || t.it.index < 0 {
		t.it.cancelled = true
		return
	}
	t.it.cancelled = true
	heap.Remove(&t.l.queue, t.it.index)
}

// Once schedules fn to run d after the current loop time. Negative delays
// run on the next step.
func (l *Loop) Once(d time.Duration, fn func()) host.Timer {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	it := &timerItem{at: l.now + d, seq: l.seq, fn: fn}
	heap.Push(&l.queue, it)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return &loopTimer{l: l, it: it}
}

// Now is the loop time since start.
func (l *Loop) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// Pending is the number of armed timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Advance moves virtual time forward by d, running every timer that comes
// due, including timers armed by callbacks within the window. It must not
// be used while Run is active.
func (l *Loop) Advance(d time.Duration) {
	l.mu.Lock()
	target := l.now + d
	l.mu.Unlock()
	l.advanceTo(target)
}

func (l *Loop) advanceTo(target time.Duration) {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 || l.queue[0].at > target {
			if target > l.now {
				l.now = target
			}
			l.mu.Unlock()
			return
		}
		it := heap.Pop(&l.queue).(*timerItem)
		if it.at > l.now {
			l.now = it.at
		}
		l.mu.Unlock()

		l.call(it.fn)
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("host callback panic",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}

// nextDue returns how long until the earliest timer, or false if none.
func (l *Loop) nextDue() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return 0, false
	}
	return l.queue[0].at - l.now, true
}

// Run drives the loop on wall-clock time until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)
	l.startOnce.Do(func() { close(l.started) })

	base := l.Now()
	start := time.Now()
	elapsed := func() time.Duration { return base + time.Since(start) }

	idle := time.NewTimer(time.Hour)
	defer idle.Stop()

	for {
		l.advanceTo(elapsed())

		wait := time.Minute
		if d, ok := l.nextDue(); ok && d < wait {
			wait = d
		}
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(wait)

		select {
		case <-ctx.Done():
			l.drain()
			return nil
		case fn := <-l.posted:
			l.advanceTo(elapsed())
			l.call(fn)
		case <-l.wake:
		case <-idle.C:
		}
	}
}

// drain runs posted work left behind at shutdown so Do callers unblock.
func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.posted:
			l.call(fn)
		default:
			return
		}
	}
}

// Started is closed once Run has taken over; from then on Post and Do hand
// work to the loop goroutine.
func (l *Loop) Started() <-chan struct{} { return l.started }

// Post queues fn to run on the loop. Without a running loop (virtual time)
// fn runs inline on the caller.
func (l *Loop) Post(fn func()) {
	if !l.running.Load() {
		l.call(fn)
		return
	}
	l.posted <- fn
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if !l.running.Load() {
		l.call(fn)
		return nil
	}
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case l.posted <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
