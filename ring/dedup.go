package ring

import (
	"container/heap"
	"time"

	"ringer/signals"
)

// Key identifies one signal occurrence.
type Key = signals.Key

// DefaultGrace is how long a fired occurrence stays suppressed.
const DefaultGrace = 5 * time.Minute

// Dedup remembers fired occurrences until their grace period passes.
// Entries live in a min-heap keyed by expiry so each tick only touches what
// actually expired. Not safe for concurrent use; the engine serializes access.
type Dedup struct {
	grace   time.Duration
	entries map[Key]*dedupEntry
	queue   expiryQueue
}

type dedupEntry struct {
	key     Key
	expires time.Time
	index   int
}

func NewDedup(grace time.Duration) *Dedup {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Dedup{grace: grace, entries: make(map[Key]*dedupEntry)}
}

// ShouldSuppress reports whether k fired less than the grace period ago.
// It compares against the recorded expiry itself, so a missed Expire cannot
// extend suppression.
func (d *Dedup) ShouldSuppress(k Key, now time.Time) bool {
	e, ok := d.entries[k]
	return ok && now.Before(e.expires)
}

// MarkFired starts or restarts the grace period for k.
func (d *Dedup) MarkFired(k Key, now time.Time) {
	expires := now.Add(d.grace)
	if e, ok := d.entries[k]; ok {
		e.expires = expires
		heap.Fix(&d.queue, e.index)
		return
	}
	e := &dedupEntry{key: k, expires: expires}
	heap.Push(&d.queue, e)
	d.entries[k] = e
}

// Expire drops every entry whose grace period has passed and returns their keys.
func (d *Dedup) Expire(now time.Time) []Key {
	var out []Key
	for {
		next, ok := d.next()
		if !ok || now.Before(next) {
			break
		}
		e := heap.Pop(&d.queue).(*dedupEntry)
		delete(d.entries, e.key)
		out = append(out, e.key)
	}
	return out
}

func (d *Dedup) Clear() {
	d.entries = make(map[Key]*dedupEntry)
	d.queue = nil
}

func (d *Dedup) Len() int { return len(d.entries) }

// next returns the earliest pending expiry.
func (d *Dedup) next() (time.Time, bool) {
	if len(d.queue) == 0 {
		return time.Time{}, false
	}
	return d.queue[0].expires, true
}

type expiryQueue []*dedupEntry

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].expires.Before(q[j].expires) }

func (q expiryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *expiryQueue) Push(x any) {
	e := x.(*dedupEntry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
