package runtime

import (
	"kimp-board/contract"
	"sync"
)

// Registry maps a subscriber to the sink its live messages are pushed to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.MessageSink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.MessageSink)}
}

// Subscribe registers the sink of a subscriber, replacing any previous one.
func (r *Registry) Subscribe(subscriberID string, sink contract.MessageSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[subscriberID] = sink
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (r *Registry) Unsubscribe(subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, subscriberID)
}

// Sinks returns a snapshot of the active sinks, safe to use without the lock.
func (r *Registry) Sinks() []contract.MessageSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.MessageSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
