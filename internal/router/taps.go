package router

import "sync"

// Subscribe opens a tap that receives every successfully dispatched envelope.
// A slow reader never blocks dispatch: when the tap is full the oldest
// droppable frame gives way.
func (r *Router) Subscribe() Tap {
	t := newTap(r.tapCapacity, r.logger)
	r.tapMu.Lock()
	r.taps[t] = struct{}{}
	r.tapMu.Unlock()
	return Tap{
		Frames: t.ch,
		cancel: func() {
			r.removeTap(t)
		},
	}
}

// Close detaches every tap.
func (r *Router) Close() {
	r.tapMu.Lock()
	taps := r.taps
	r.taps = map[*tap]struct{}{}
	r.tapMu.Unlock()
	for t := range taps {
		t.close()
	}
}

func (r *Router) publish(env Envelope) {
	r.tapMu.RLock()
	if len(r.taps) == 0 {
		r.tapMu.RUnlock()
		return
	}
	live := make([]*tap, 0, len(r.taps))
	for t := range r.taps {
		live = append(live, t)
	}
	r.tapMu.RUnlock()
	for _, t := range live {
		t.deliver(env)
	}
}

func (r *Router) removeTap(t *tap) {
	r.tapMu.Lock()
	delete(r.taps, t)
	r.tapMu.Unlock()
	t.close()
}

type tap struct {
	mu     sync.Mutex
	ch     chan Envelope
	logger Logger
	closed bool
}

func newTap(capacity int, logger Logger) *tap {
	if capacity <= 0 {
		capacity = defaultTapCapacity
	}
	return &tap{ch: make(chan Envelope, capacity), logger: logger}
}

func (t *tap) deliver(env Envelope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.ch <- env:
		return
	default:
	}
	var oldest Envelope
	select {
	case oldest = <-t.ch:
	default:
		// drained by the reader in the meantime
		t.ch <- env
		return
	}
	if shouldDropOldest(oldest, env) {
		t.logger.Printf("router: tap dropped %s (queue overflow)", oldest.Type)
		t.ch <- env
		return
	}
	t.ch <- oldest
	t.logger.Printf("router: tap dropped %s (queue overflow:incoming)", env.Type)
}

func (t *tap) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.ch)
}

func shouldDropOldest(oldest, incoming Envelope) bool {
	oldestCritical := isCriticalFrame(oldest.Type)
	incomingCritical := isCriticalFrame(incoming.Type)
	switch {
	case oldestCritical && !incomingCritical:
		return false
	case !oldestCritical && incomingCritical:
		return true
	}
	oldestPreferred := isPreferredDrop(oldest.Type)
	incomingPreferred := isPreferredDrop(incoming.Type)
	if !oldestPreferred && incomingPreferred {
		return false
	}
	return true
}
