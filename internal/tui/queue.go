package tui

import "sync"

// requestQueue hands controller calls over in the order Update issued them.
// tea runs commands concurrently, so each command only drains the queue;
// whichever runs first performs every pending call in order.
type requestQueue struct {
	run sync.Mutex

	mu      sync.Mutex
	pending []func(Controller)
}

func (q *requestQueue) push(fn func(Controller)) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

func (q *requestQueue) drain(ctrl Controller) {
	q.run.Lock()
	defer q.run.Unlock()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn(ctrl)
	}
}
