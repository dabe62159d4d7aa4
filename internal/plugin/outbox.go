package plugin

import "sync"

// Outbox buffers messages produced outside a request, such as selection
// updates. When full, the oldest message is dropped.
type Outbox struct {
	mu       sync.Mutex
	capacity int
	items    []Outbound
	dropped  int
}

func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = 32
	}
	return &Outbox{capacity: capacity}
}

func (o *Outbox) Push(msg Outbound) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == o.capacity {
		o.items = o.items[1:]
		o.dropped++
	}
	o.items = append(o.items, msg)
}

func (o *Outbox) Drain() []Outbound {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.items
	o.items = nil
	return out
}

func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
