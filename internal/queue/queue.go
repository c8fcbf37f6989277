package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/dockhook/dockhook/internal/metrics"
)

// Queue holds pending delivery tasks ordered by NextAttemptAt, earliest
// first; ties break by CreatedAt, then insertion order. Push and pops are
// serialized under one mutex so concurrent producers and consumers never
// lose or duplicate a task.
//
// Tasks live in process memory only: whatever is pending when the process
// dies is lost. Len at shutdown reports how many were abandoned.
type Queue struct {
	mu   sync.Mutex
	h    taskHeap
	seq  uint64
	wake chan struct{}
}

func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push inserts a task in O(log n).
func (q *Queue) Push(t Task) {
	q.mu.Lock()
	q.seq++
	heap.Push(&q.h, &item{task: t, seq: q.seq})
	depth := q.h.Len()
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))

	// Nudge a waiting consumer; a full buffer already guarantees a wakeup.
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// PopReady removes and returns the earliest task whose NextAttemptAt is at or
// before now. Returns false without blocking when nothing is ready.
func (q *Queue) PopReady(now time.Time) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.h.Len() == 0 || q.h[0].task.NextAttemptAt.After(now) {
		return Task{}, false
	}
	it := heap.Pop(&q.h).(*item)
	metrics.QueueDepth.Set(float64(q.h.Len()))
	return it.task, true
}

// PopWait blocks until a task becomes ready or ctx is done. It sleeps until
// the head's NextAttemptAt and is woken early by new pushes.
func (q *Queue) PopWait(ctx context.Context) (Task, error) {
	for {
		if t, ok := q.PopReady(time.Now()); ok {
			return t, nil
		}

		wait := q.headDelay()
		var timer *time.Timer
		var timerC <-chan time.Time
		if wait >= 0 {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return Task{}, ctx.Err()
		case <-q.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
		}
	}
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// headDelay returns time until the head task is ready, or -1 when empty.
func (q *Queue) headDelay() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		return -1
	}
	d := time.Until(q.h[0].task.NextAttemptAt)
	if d < 0 {
		d = 0
	}
	return d
}

type item struct {
	task Task
	seq  uint64
}

type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if !a.task.NextAttemptAt.Equal(b.task.NextAttemptAt) {
		return a.task.NextAttemptAt.Before(b.task.NextAttemptAt)
	}
	if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
		return a.task.CreatedAt.Before(b.task.CreatedAt)
	}
	return a.seq < b.seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*item)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
