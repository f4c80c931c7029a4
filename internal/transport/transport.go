// Package transport is the peer-link facade the session layer runs on:
// named listening endpoints, dial-by-name, per-link send, and a single
// ordered event stream per endpoint. Links are unreliable (a dial may
// fail and an open link may close at any moment) and the session
// treats a closed link as a terminal membership event, never a retry
// point.
package transport

import (
	"context"
	"errors"

	"github.com/baucua-game/baucua/internal/protocol"
)

var (
	// ErrNameTaken means the endpoint name is already claimed. Callers
	// retry with a different name.
	ErrNameTaken = errors.New("endpoint name taken")

	// ErrLinkClosed comes back from Send on a link that is no longer
	// open. Broadcast fan-out treats it as a skip, not a failure.
	ErrLinkClosed = errors.New("link closed")
)

// Link is one open connection to a remote peer.
type Link interface {
	// ID is opaque and unique for the life of the link.
	ID() string
	Send(env protocol.Envelope) error
	Close() error
}

// Event is the closed set of things a link can do to you. Consumers
// pull events off one channel and handle them one at a time, which is
// what makes session state mutation safe without locks.
type Event interface{ isTransportEvent() }

// Opened fires when a remote peer connects to an endpoint.
type Opened struct{ Link Link }

// Data carries one decoded envelope off a link.
type Data struct {
	Link Link
	Env  protocol.Envelope
}

// Closed fires once when a link goes away, for whatever reason.
type Closed struct{ Link Link }

// Errored reports a link-level fault. A Closed event still follows.
type Errored struct {
	Link Link
	Err  error
}

func (Opened) isTransportEvent()  {}
func (Data) isTransportEvent()    {}
func (Closed) isTransportEvent()  {}
func (Errored) isTransportEvent() {}

// Endpoint is a named listening point owned by a host.
type Endpoint interface {
	Name() string
	Events() <-chan Event
	Close() error
}

// Network hands out endpoints and links. Listen fails with ErrNameTaken
// on a name collision; any other error means the network itself is
// unavailable. Dial returns the link plus that link's own event stream.
type Network interface {
	Listen(name string) (Endpoint, error)
	Dial(ctx context.Context, name string) (Link, <-chan Event, error)
}
