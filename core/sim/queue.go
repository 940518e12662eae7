package sim

import "container/heap"

// pending is a scheduled event awaiting processing. Ordering is by timestamp
// with insertion sequence as the tie-break, which keeps replay deterministic.
type pending struct {
	timeMin float64
	seq     int
	tripID  string
	typ     EventType
}

type eventQueue []pending

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].timeMin != q[j].timeMin {
		return q[i].timeMin < q[j].timeMin
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(pending)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	*q = old[:n-1]
	return ev
}

var _ heap.Interface = (*eventQueue)(nil)
