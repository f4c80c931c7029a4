package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
	"github.com/baucua-game/baucua/internal/transport"
)

// Cmd is the closed set of local player actions.
type Cmd interface{ isClientCmd() }

type PlaceBet struct{ Item game.Item }

type ResetBets struct{}

type GetState struct{ Reply chan Mirror }

type Shutdown struct{}

func (PlaceBet) isClientCmd()  {}
func (ResetBets) isClientCmd() {}
func (GetState) isClientCmd()  {}
func (Shutdown) isClientCmd()  {}

// Event is what the client reports to its UI.
type Event interface{ isClientEvent() }

type StatusChanged struct {
	Status Status
	Reason string
}

type BetsChanged struct{ Bets game.WagerVector }

type LeaderboardChanged struct{ Members []protocol.Participant }

type PlayerNotice struct {
	DisplayName string
	Left        bool
}

type RoundStarted struct{}

type RoundSettled struct {
	Outcome game.Outcome
	Balance int
}

func (StatusChanged) isClientEvent()      {}
func (BetsChanged) isClientEvent()        {}
func (LeaderboardChanged) isClientEvent() {}
func (PlayerNotice) isClientEvent()       {}
func (RoundStarted) isClientEvent()       {}
func (RoundSettled) isClientEvent()       {}

// Client drives one dialed link: it sends the join request, folds every
// host broadcast into its mirror one event at a time, and forwards the
// player's own actions to the host after applying them optimistically.
type Client struct {
	inbox  chan Cmd
	events chan Event

	link       transport.Link
	linkEvents <-chan transport.Event
	mirror     *Mirror
	wagerStep  int
	log        *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts the client loop over an open link and immediately asks to
// be admitted with the given candidate record.
func New(parent context.Context, link transport.Link, linkEvents <-chan transport.Event, cand protocol.Participant, wagerStep int, log *zap.SugaredLogger) *Client {
	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		inbox:      make(chan Cmd, 64),
		events:     make(chan Event, 64),
		link:       link,
		linkEvents: linkEvents,
		mirror:     NewMirror(cand),
		wagerStep:  wagerStep,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.send(protocol.JoinRequest{Candidate: cand})
	go c.loop()
	return c
}

func (c *Client) Inbox() chan<- Cmd    { return c.inbox }
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) loop() {
	for {
		select {
		case <-c.ctx.Done():
			_ = c.link.Close()
			return

		case ev := <-c.linkEvents:
			c.handleTransport(ev)

		case cmd := <-c.inbox:
			switch m := cmd.(type) {
			case PlaceBet:
				c.placeBet(m.Item)
			case ResetBets:
				c.resetBets()
			case GetState:
				m.Reply <- *c.mirror
			case Shutdown:
				_ = c.link.Close()
				c.cancel()
				return
			}
		}
	}
}

func (c *Client) handleTransport(ev transport.Event) {
	switch e := ev.(type) {
	case transport.Data:
		msg, err := protocol.Decode(e.Env)
		if err != nil {
			c.log.Warnw("bad payload", "tag", e.Env.Type, "err", err)
			return
		}
		if msg == nil {
			return // unknown tag
		}
		settled := c.mirror.Apply(msg)
		c.report(msg)
		if settled {
			// the round changed our balance; tell the host, which
			// is also what gets us evicted if we're broke now
			c.send(protocol.PlayerUpdate{Participant: c.mirror.Self})
		}

	case transport.Closed:
		if c.mirror.Status == StatusJoined || c.mirror.Status == StatusConnecting {
			c.mirror.Status = StatusOffline
			c.emit(StatusChanged{Status: StatusOffline})
		}

	case transport.Errored:
		c.log.Warnw("link error", "err", e.Err)
	}
}

// report translates an applied broadcast into a UI event.
func (c *Client) report(msg protocol.Msg) {
	switch v := msg.(type) {
	case *protocol.JoinAccepted:
		c.emit(StatusChanged{Status: StatusJoined})
		c.emit(BetsChanged{Bets: c.mirror.Bets})
		c.emit(LeaderboardChanged{Members: c.mirror.Members})
	case *protocol.JoinRejected:
		c.emit(StatusChanged{Status: StatusRejected, Reason: v.Reason})
	case *protocol.KickedNoMoney:
		c.emit(StatusChanged{Status: StatusEvicted})
	case *protocol.UpdateGlobalBets:
		c.emit(BetsChanged{Bets: c.mirror.Bets})
	case *protocol.LeaderboardUpdate:
		c.emit(LeaderboardChanged{Members: c.mirror.Members})
	case *protocol.PlayerJoined:
		c.emit(PlayerNotice{DisplayName: v.DisplayName})
	case *protocol.PlayerLeft:
		c.emit(PlayerNotice{DisplayName: v.DisplayName, Left: true})
	case *protocol.ShakeStart:
		c.emit(RoundStarted{})
	case *protocol.ShakeResult:
		c.emit(RoundSettled{Outcome: v.Outcome, Balance: c.mirror.Self.Balance})
	}
}

// placeBet applies the optimistic local layer first, then forwards the
// bet. The debited balance stays local until settlement: the host only
// hears a new balance in the post-round PLAYER_UPDATE, so a deep stake
// doesn't read as going broke mid-round.
func (c *Client) placeBet(item game.Item) {
	if !game.ValidItem(item) {
		return
	}
	if !c.mirror.PlaceBet(item, c.wagerStep) {
		c.log.Infow("not enough balance to bet", "balance", c.mirror.Self.Balance)
		return
	}
	c.send(protocol.PlaceBet{Item: item, Amount: c.wagerStep})
}

func (c *Client) resetBets() {
	c.mirror.ResetBets()
	c.send(protocol.ResetBets{})
}

func (c *Client) send(msg protocol.Msg) {
	env, err := protocol.Encode(msg)
	if err != nil {
		c.log.Errorw("encode failed", "tag", msg.Tag(), "err", err)
		return
	}
	if err := c.link.Send(env); err != nil {
		c.log.Debugw("send failed", "tag", msg.Tag(), "err", err)
	}
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
