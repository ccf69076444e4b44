package history

import "github.com/mbd888/riskoracle/internal/action"

// ring is a fixed-capacity FIFO of actions. Once full, each push overwrites
// the oldest entry in O(1).
type ring struct {
	buf   []action.Action
	start int // index of the oldest entry
	size  int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]action.Action, capacity)}
}

func (r *ring) push(a action.Action) {
	capacity := len(r.buf)
	if r.size < capacity {
		r.buf[(r.start+r.size)%capacity] = a
		r.size++
		return
	}
	r.buf[r.start] = a
	r.start = (r.start + 1) % capacity
}

func (r *ring) len() int { return r.size }

// items returns a copy of the entries, oldest first.
func (r *ring) items() []action.Action {
	out := make([]action.Action, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
