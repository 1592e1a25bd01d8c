// Package ws tracks streaming observers, their topic subscriptions, and the
// periodic host metrics push.
package ws

import (
	"sync"

	"github.com/google/uuid"
)

// ConnID identifies one registered connection.
type ConnID string

// Sender delivers a message to one connection. Implementations serialise their
// own writes.
type Sender interface {
	Send(msg any) error
}

// Logger is the subset of utils.Logger used by this package.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type conn struct {
	sender Sender
	owner  string
	topics map[string]struct{}
}

// Registry maps connections to owners and topics.
type Registry struct {
	mu          sync.RWMutex
	conns       map[ConnID]*conn
	subscribers map[string]map[ConnID]struct{}
	logger      Logger
}

func NewRegistry(logger Logger) *Registry {
	return &Registry{
		conns:       make(map[ConnID]*conn),
		subscribers: make(map[string]map[ConnID]struct{}),
		logger:      logger,
	}
}

// Connect registers sender for owner with no subscriptions.
func (r *Registry) Connect(sender Sender, owner string) ConnID {
	id := ConnID(uuid.NewString())
	r.mu.Lock()
	r.conns[id] = &conn{sender: sender, owner: owner, topics: make(map[string]struct{})}
	r.mu.Unlock()
	r.logger.Debugf("WebSocket connection registered: id=%s owner=%s", id, owner)
	return id
}

// Disconnect removes id from every topic. Unknown ids are ignored.
func (r *Registry) Disconnect(id ConnID) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		for topic := range c.topics {
			r.removeSubscriber(topic, id)
		}
		delete(r.conns, id)
	}
	r.mu.Unlock()
	if ok {
		r.logger.Debugf("WebSocket connection removed: id=%s owner=%s", id, c.owner)
	}
}

// Subscribe adds topic to id's set and reports whether id is registered.
func (r *Registry) Subscribe(id ConnID, topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return false
	}
	c.topics[topic] = struct{}{}
	subs, ok := r.subscribers[topic]
	if !ok {
		subs = make(map[ConnID]struct{})
		r.subscribers[topic] = subs
	}
	subs[id] = struct{}{}
	return true
}

// Unsubscribe removes topic from id's set and reports whether id is registered.
func (r *Registry) Unsubscribe(id ConnID, topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return false
	}
	delete(c.topics, topic)
	r.removeSubscriber(topic, id)
	return true
}

// removeSubscriber must be called with mu held.
func (r *Registry) removeSubscriber(topic string, id ConnID) {
	subs, ok := r.subscribers[topic]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(r.subscribers, topic)
	}
}

// SendTo delivers msg to id. Failures are logged and dropped.
func (r *Registry) SendTo(id ConnID, msg any) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.deliver(id, c.sender, msg)
}

// BroadcastToTopic delivers msg to every subscriber of topic and returns how
// many sends succeeded.
func (r *Registry) BroadcastToTopic(topic string, msg any) int {
	r.mu.RLock()
	targets := make(map[ConnID]Sender, len(r.subscribers[topic]))
	for id := range r.subscribers[topic] {
		targets[id] = r.conns[id].sender
	}
	r.mu.RUnlock()
	return r.fanOut(targets, msg)
}

// BroadcastToOwner delivers msg to every connection owned by owner.
func (r *Registry) BroadcastToOwner(owner string, msg any) int {
	r.mu.RLock()
	targets := make(map[ConnID]Sender)
	for id, c := range r.conns {
		if c.owner == owner {
			targets[id] = c.sender
		}
	}
	r.mu.RUnlock()
	return r.fanOut(targets, msg)
}

// BroadcastAll delivers msg to every registered connection.
func (r *Registry) BroadcastAll(msg any) int {
	r.mu.RLock()
	targets := make(map[ConnID]Sender, len(r.conns))
	for id, c := range r.conns {
		targets[id] = c.sender
	}
	r.mu.RUnlock()
	return r.fanOut(targets, msg)
}

// HasSubscribers reports whether any connection subscribes to topic.
func (r *Registry) HasSubscribers(topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[topic]) > 0
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) fanOut(targets map[ConnID]Sender, msg any) int {
	delivered := 0
	for id, s := range targets {
		if r.deliver(id, s, msg) {
			delivered++
		}
	}
	return delivered
}

func (r *Registry) deliver(id ConnID, s Sender, msg any) bool {
	if err := s.Send(msg); err != nil {
		r.logger.Debugf("WebSocket send failed: id=%s error=%v", id, err)
		return false
	}
	return true
}
