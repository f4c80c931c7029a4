package session

import (
	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
)

// Event is what the session reports to its local observer (the host's
// UI). These mirror the broadcasts remote clients get.
type Event interface{ isSessionEvent() }

type MemberJoined struct{ DisplayName string }

type MemberLeft struct{ DisplayName string }

// BetsChanged carries the freshly recomputed aggregate.
type BetsChanged struct{ Bets game.WagerVector }

type LeaderboardChanged struct{ Members []protocol.Participant }

type RoundStarted struct{}

// RoundSettled reports the host's own settlement for the round.
type RoundSettled struct {
	Outcome game.Outcome
	Return  int
	Balance int
}

func (MemberJoined) isSessionEvent()       {}
func (MemberLeft) isSessionEvent()         {}
func (BetsChanged) isSessionEvent()        {}
func (LeaderboardChanged) isSessionEvent() {}
func (RoundStarted) isSessionEvent()       {}
func (RoundSettled) isSessionEvent()       {}
