package eventloop

import (
	"container/heap"
	"time"
)

type timerEntry struct {
	at time.Time
	fn Task
}

// timerQueue is a min-heap of armed timers keyed by deadline. It is owned
// by the loop goroutine and never accessed from elsewhere, so it carries
// no lock.
type timerQueue []*timerEntry

var _ heap.Interface = &timerQueue{}

func (q timerQueue) Len() int {
	return len(q)
}

func (q timerQueue) Less(i, j int) bool {
	return q[i].at.Before(q[j].at)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *timerQueue) Push(x any) {
	ent, ok := x.(*timerEntry)
	if !ok {
		panic("invariant violated")
	}
	*q = append(*q, ent)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	ent := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ent
}

func (q *timerQueue) push(ent *timerEntry) {
	heap.Push(q, ent)
}

// peek returns the entry with the earliest deadline without removing it,
// or nil when the queue is empty.
func (q *timerQueue) peek() *timerEntry {
	if len(*q) == 0 {
		return nil
	}
	return (*q)[0]
}

// popDue removes and returns every entry whose deadline is at or before
// now, in deadline order.
func (q *timerQueue) popDue(now time.Time) []*timerEntry {
	var due []*timerEntry
	for {
		min := q.peek()
		if min == nil || min.at.After(now) {
			break
		}
		due = append(due, heap.Pop(q).(*timerEntry))
	}
	return due
}
