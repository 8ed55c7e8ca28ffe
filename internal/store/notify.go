package store

import "sync"

// Subscription delivers a coalesced signal every time the owning store changes.
// Readers re-read the store's view after each receive; a burst of writes may
// collapse into a single signal.
type Subscription struct {
	C      <-chan struct{}
	cancel func()
}

// Close detaches the subscription. It is safe to call more than once.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

type notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func (n *notifier) subscribe() Subscription {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.subs == nil {
		n.subs = map[chan struct{}]struct{}{}
	}
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	var once sync.Once
	return Subscription{
		C: ch,
		cancel: func() {
			once.Do(func() {
				n.mu.Lock()
				delete(n.subs, ch)
				n.mu.Unlock()
				close(ch)
			})
		},
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
