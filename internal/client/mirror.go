// Package client is the non-authoritative side of a room: it requests,
// the host decides, and broadcasts overwrite the local mirror
// wholesale. The only state a client truly owns is its own balance and
// pending wagers.
package client

import (
	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
)

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusJoined     Status = "joined"
	StatusRejected   Status = "rejected"
	StatusEvicted    Status = "evicted"
	StatusOffline    Status = "offline"
)

// Mirror folds host broadcasts into local read-only copies. Every
// apply is an idempotent overwrite with no merging, so messages arriving
// twice or out of order between kinds settle to the same state.
//
// Two layers live side by side: Self and Wager are local truth (the
// optimistic layer), Bets and Members are host-confirmed. A broadcast
// never touches Self.Balance.
type Mirror struct {
	Self    protocol.Participant
	Wager   game.WagerVector // own pending stakes this round
	Bets    game.WagerVector // host's aggregate, everyone's money
	Members []protocol.Participant
	Status  Status
	Reason  string // why rejected, when Status is rejected
	Shaking bool
}

func NewMirror(self protocol.Participant) *Mirror {
	return &Mirror{
		Self:   self,
		Wager:  game.NewWagerVector(),
		Bets:   game.NewWagerVector(),
		Status: StatusConnecting,
	}
}

// Apply folds one host message in. Returns true when the message was a
// shake result, which is the caller's cue to sync its settled record
// back to the host.
func (m *Mirror) Apply(msg protocol.Msg) bool {
	switch v := msg.(type) {
	case *protocol.JoinAccepted:
		m.Status = StatusJoined
		m.Bets = v.Bets
		m.Members = v.Members

	case *protocol.JoinRejected:
		m.Status = StatusRejected
		m.Reason = v.Reason

	case *protocol.KickedNoMoney:
		m.Status = StatusEvicted

	case *protocol.UpdateGlobalBets:
		m.Bets = v.Bets

	case *protocol.LeaderboardUpdate:
		m.Members = v.Members

	case *protocol.ShakeStart:
		m.Shaking = true

	case *protocol.ShakeResult:
		ret := game.Settle(m.Wager, v.Outcome)
		m.Self.Balance += ret
		m.Wager = game.NewWagerVector()
		m.Shaking = false
		return true

	case *protocol.PlayerJoined, *protocol.PlayerLeft:
		// notices only; the member list itself arrives in
		// LEADERBOARD_UPDATE

	default:
		// client-to-host tags or future ones: ignore
	}
	return false
}

// PlaceBet optimistically stakes amount on item, refusing only when the
// balance would go negative. The host hears about it separately.
func (m *Mirror) PlaceBet(item game.Item, amount int) bool {
	if m.Self.Balance < amount {
		return false
	}
	m.Self.Balance -= amount
	m.Wager.Add(item, amount)
	return true
}

// ResetBets refunds every pending stake.
func (m *Mirror) ResetBets() {
	m.Self.Balance += m.Wager.Total()
	m.Wager = game.NewWagerVector()
}
