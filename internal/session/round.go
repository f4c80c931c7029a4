package session

import (
	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
)

// startRound moves Idle -> Shaking: announce the shake so clients can
// show a waiting state, then schedule the outcome as a continuation on
// the injected clock. The delay is presentation pacing; membership
// events keep flowing while it runs.
func (s *Session) startRound() {
	if s.phase != PhaseIdle {
		s.log.Debugw("round already running, ignoring start")
		return
	}
	s.phase = PhaseShaking
	s.roundGen++
	gen := s.roundGen

	s.broadcast(protocol.ShakeStart{})
	s.emit(RoundStarted{})
	s.log.Infow("round started", "gen", gen)

	s.clock.AfterFunc(s.cfg.ShakeDelay, func() {
		select {
		case s.inbox <- shakeFired{gen: gen}:
		case <-s.ctx.Done():
		}
	})
}

// settleRound is the Shaking -> Settling -> Idle leg, all inside one
// handler run. The host broadcasts the outcome (clients can't settle
// without it), settles its own wagers with the same arithmetic every
// client uses, zeroes the whole ledger, and publishes the now-empty
// aggregate.
func (s *Session) settleRound(gen int) {
	if s.phase != PhaseShaking || gen != s.roundGen {
		// a timer from a round that no longer exists
		return
	}
	outcome := game.Roll(s.rng)
	s.broadcast(protocol.ShakeResult{Outcome: outcome})

	ret := game.Settle(s.ledger[s.self.ID], outcome)
	s.self.Balance += ret
	s.members[s.self.ID] = s.self

	for id := range s.ledger {
		s.ledger[id] = game.NewWagerVector()
	}
	s.phase = PhaseIdle

	s.publishBets()
	s.evictScan()
	s.publishLeaderboard()

	s.emit(RoundSettled{Outcome: outcome, Return: ret, Balance: s.self.Balance})
	s.log.Infow("round settled", "outcome", outcome, "hostReturn", ret)
}
