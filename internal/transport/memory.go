package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/baucua-game/baucua/internal/protocol"
)

// Memory is an in-process Network: endpoints live in a name registry
// and links are channel pairs. Tests drive whole host/client sessions
// through it, and it is the one implementation where Listen name
// collisions actually happen.
type Memory struct {
	mu        sync.Mutex
	endpoints map[string]*memEndpoint
	nextLink  int
}

func NewMemory() *Memory {
	return &Memory{endpoints: make(map[string]*memEndpoint)}
}

func (m *Memory) Listen(name string) (Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.endpoints[name]; exists {
		return nil, ErrNameTaken
	}
	ep := &memEndpoint{
		name:   name,
		events: make(chan Event, 64),
		net:    m,
	}
	m.endpoints[name] = ep
	return ep, nil
}

func (m *Memory) Dial(ctx context.Context, name string) (Link, <-chan Event, error) {
	m.mu.Lock()
	ep, ok := m.endpoints[name]
	m.nextLink++
	id := fmt.Sprintf("mem-%d", m.nextLink)
	m.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("dial %s: no such endpoint", name)
	}

	clientEvents := make(chan Event, 64)
	hostSide := &memLink{id: id}
	clientSide := &memLink{id: id}
	// each side's Send lands in the other side's event stream
	hostSide.deliver = clientEvents
	hostSide.peer = clientSide
	clientSide.deliver = ep.events
	clientSide.peer = hostSide

	ep.events <- Opened{Link: hostSide}
	return clientSide, clientEvents, nil
}

type memEndpoint struct {
	name   string
	events chan Event
	net    *Memory
	closed sync.Once
}

func (e *memEndpoint) Name() string         { return e.name }
func (e *memEndpoint) Events() <-chan Event { return e.events }

func (e *memEndpoint) Close() error {
	e.closed.Do(func() {
		e.net.mu.Lock()
		delete(e.net.endpoints, e.name)
		e.net.mu.Unlock()
	})
	return nil
}

type memLink struct {
	id      string
	deliver chan Event
	peer    *memLink

	mu     sync.Mutex
	closed bool
}

func (l *memLink) ID() string { return l.id }

func (l *memLink) Send(env protocol.Envelope) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLinkClosed
	}
	// the remote reads this link's traffic as Data from its own handle.
	// A peer that stopped draining just misses frames, same as a slow
	// websocket running into the send timeout.
	select {
	case l.deliver <- Data{Link: l.peer, Env: env}:
	default:
	}
	return nil
}

func (l *memLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.peer.mu.Lock()
	peerClosed := l.peer.closed
	l.peer.closed = true
	l.peer.mu.Unlock()
	if !peerClosed {
		select {
		case l.deliver <- Closed{Link: l.peer}:
		default:
		}
	}
	return nil
}
