// Package session runs the host side of a room: membership registry,
// wager ledger, eviction, and the round state machine, all inside one
// event loop. Handlers run to completion one at a time, so registry and
// ledger mutation needs no locking, and every broadcast goes out after
// the mutation it reports, never before.
package session

import (
	"context"
	"math/rand"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
	"github.com/baucua-game/baucua/internal/transport"
)

// Config holds the table stakes. None of these change the shape of the
// protocol, only its numbers.
type Config struct {
	MinBalanceToJoin int
	MinBalanceToStay int
	WagerStep        int
	ShakeDelay       time.Duration
	// KickGrace is how long an evicted player's link stays open after
	// the kick message, so the message actually gets out before the
	// socket dies under it.
	KickGrace time.Duration
}

// Msg is the closed set of local commands the host process can feed
// its own session.
type Msg interface{ isSessionMsg() }

// StartRound begins a shake. Only meaningful from Idle.
type StartRound struct{}

// PlaceBet stakes one wager step of the host's own money on Item.
type PlaceBet struct{ Item game.Item }

// ResetBets refunds and clears the host's own wagers.
type ResetBets struct{}

// GetState reflects internal state out for tests, without data races.
type GetState struct{ Reply chan View }

type Shutdown struct{}

// shakeFired is the scheduled continuation of StartRound. Gen guards
// against a stale timer from an earlier round.
type shakeFired struct{ gen int }

func (StartRound) isSessionMsg() {}
func (PlaceBet) isSessionMsg()   {}
func (ResetBets) isSessionMsg()  {}
func (GetState) isSessionMsg()   {}
func (Shutdown) isSessionMsg()   {}
func (shakeFired) isSessionMsg() {}

// Phase of the round state machine. Settling happens inside a single
// handler run, so observers only ever see Idle or Shaking.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseShaking Phase = "shaking"
)

// View is a read-only copy of session state for tests and status.
type View struct {
	Phase    Phase
	Members  []protocol.Participant
	Bets     game.WagerVector
	NumLinks int
}

// Session owns all shared room state. Exactly one goroutine (the loop)
// touches members, ledger and links.
type Session struct {
	inbox  chan Msg
	events chan Event

	cfg   Config
	clock Clock
	rng   *rand.Rand
	log   *zap.SugaredLogger

	ep   transport.Endpoint
	self protocol.Participant

	members map[string]protocol.Participant
	ledger  map[string]game.WagerVector
	links   map[string]transport.Link // member id -> link
	byLink  map[string]string         // link id -> member id

	phase    Phase
	roundGen int

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts a session on an already-bound endpoint. The host's own
// participant uses the endpoint name as its id and joins its own
// registry immediately; it is the one member eviction can never touch.
func New(parent context.Context, ep transport.Endpoint, hostName string, balance int, cfg Config, clock Clock, rng *rand.Rand, log *zap.SugaredLogger) *Session {
	ctx, cancel := context.WithCancel(parent)

	self := protocol.Participant{
		ID:          ep.Name(),
		DisplayName: hostName,
		Balance:     balance,
		IsHost:      true,
	}
	s := &Session{
		inbox:   make(chan Msg, 64),
		events:  make(chan Event, 64),
		cfg:     cfg,
		clock:   clock,
		rng:     rng,
		log:     log,
		ep:      ep,
		self:    self,
		members: map[string]protocol.Participant{self.ID: self},
		ledger:  map[string]game.WagerVector{self.ID: game.NewWagerVector()},
		links:   make(map[string]transport.Link),
		byLink:  make(map[string]string),
		phase:   PhaseIdle,
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Events is the local observer stream. Slow observers lose events
// rather than stall the loop.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case ev := <-s.ep.Events():
			s.handleTransport(ev)

		case m := <-s.inbox:
			switch msg := m.(type) {
			case StartRound:
				s.startRound()
			case shakeFired:
				s.settleRound(msg.gen)
			case PlaceBet:
				s.placeOwnBet(msg.Item)
			case ResetBets:
				s.resetOwnBets()
			case GetState:
				msg.Reply <- View{
					Phase:    s.phase,
					Members:  s.memberList(),
					Bets:     s.aggregate(),
					NumLinks: len(s.links),
				}
			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	for _, link := range s.links {
		_ = link.Close()
	}
	_ = s.ep.Close()
	s.cancel()
}

// handleTransport routes one link event. Data dispatch ignores any tag
// a client has no business sending to a host, and unknown tags, so the
// protocol stays forward-extensible.
func (s *Session) handleTransport(ev transport.Event) {
	switch e := ev.(type) {
	case transport.Opened:
		// membership starts at JOIN_REQUEST, not at link open
		s.log.Debugw("link open", "link", e.Link.ID())

	case transport.Data:
		msg, err := protocol.Decode(e.Env)
		if err != nil {
			s.log.Warnw("bad payload", "tag", e.Env.Type, "err", err)
			return
		}
		switch m := msg.(type) {
		case *protocol.JoinRequest:
			s.admit(e.Link, m.Candidate)
		case *protocol.PlaceBet:
			s.placeWager(e.Link, m.Item, m.Amount)
		case *protocol.ResetBets:
			s.resetWagers(e.Link)
		case *protocol.PlayerUpdate:
			s.updateParticipant(e.Link, m.Participant)
		default:
			// host-to-client tags bounced back, or a future message
		}

	case transport.Closed:
		if id, ok := s.byLink[e.Link.ID()]; ok {
			s.remove(id)
		}
		delete(s.byLink, e.Link.ID())

	case transport.Errored:
		s.log.Warnw("link error", "link", e.Link.ID(), "err", e.Err)
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Session) memberList() []protocol.Participant {
	out := make([]protocol.Participant, 0, len(s.members))
	out = append(out, s.members[s.self.ID])
	for id, p := range s.members {
		if id != s.self.ID {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) aggregate() game.WagerVector {
	return game.Aggregate(s.ledger)
}

func (s *Session) sendTo(link transport.Link, msg protocol.Msg) {
	env, err := protocol.Encode(msg)
	if err != nil {
		s.log.Errorw("encode failed", "tag", msg.Tag(), "err", err)
		return
	}
	if err := link.Send(env); err != nil {
		// best-effort; a dead link cleans itself up via Closed
		s.log.Debugw("send skipped", "tag", msg.Tag(), "err", err)
	}
}

// broadcast fans a message out to every connected link. Best-effort:
// a link that isn't open simply misses it, there is no redelivery.
func (s *Session) broadcast(msg protocol.Msg) {
	s.broadcastExcept(msg)
}

func (s *Session) broadcastExcept(msg protocol.Msg, except ...string) {
	env, err := protocol.Encode(msg)
	if err != nil {
		s.log.Errorw("encode failed", "tag", msg.Tag(), "err", err)
		return
	}
	for id, link := range s.links {
		if slices.Contains(except, id) {
			continue
		}
		if err := link.Send(env); err != nil {
			s.log.Debugw("send skipped", "member", id, "tag", msg.Tag(), "err", err)
		}
	}
}

