package session

import (
	"fmt"

	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
	"github.com/baucua-game/baucua/internal/transport"
)

// admit decides a join request. The only grounds for rejection is a
// balance under the join minimum; anyone else gets a registry entry, an
// empty wager vector, and a full state snapshot, the one and only
// resync a client ever receives.
func (s *Session) admit(link transport.Link, cand protocol.Participant) {
	if cand.Balance < s.cfg.MinBalanceToJoin {
		reason := fmt.Sprintf("you need at least %d to join this table, you brought %d",
			s.cfg.MinBalanceToJoin, cand.Balance)
		s.sendTo(link, protocol.JoinRejected{Reason: reason})
		s.closeAfterGrace(link)
		s.log.Infow("join rejected", "name", cand.DisplayName, "balance", cand.Balance)
		return
	}
	if _, taken := s.members[cand.ID]; taken || cand.ID == "" {
		// id already seated (the host's included) or none at all: key
		// off the link instead, it's unique for the link's lifetime
		cand.ID = link.ID()
	}
	cand.IsHost = false

	s.members[cand.ID] = cand
	s.ledger[cand.ID] = game.NewWagerVector()
	s.links[cand.ID] = link
	s.byLink[link.ID()] = cand.ID

	s.sendTo(link, protocol.JoinAccepted{Bets: s.aggregate(), Members: s.memberList()})
	s.broadcastExcept(protocol.PlayerJoined{DisplayName: cand.DisplayName}, cand.ID)
	s.broadcast(protocol.LeaderboardUpdate{Members: s.memberList()})

	s.emit(MemberJoined{DisplayName: cand.DisplayName})
	s.emit(LeaderboardChanged{Members: s.memberList()})
	s.log.Infow("joined", "name", cand.DisplayName, "id", cand.ID, "balance", cand.Balance)
}

// placeWager adds a positive increment to the sender's wager vector and
// republishes the aggregate. There is no withdraw; only RESET_BETS.
func (s *Session) placeWager(link transport.Link, item game.Item, amount int) {
	id, ok := s.byLink[link.ID()]
	if !ok {
		return // not admitted
	}
	if amount <= 0 || !game.ValidItem(item) {
		s.log.Warnw("dropping malformed bet", "member", id, "item", item, "amount", amount)
		return
	}
	s.ledger[id].Add(item, amount)
	s.publishBets()
}

func (s *Session) resetWagers(link transport.Link) {
	id, ok := s.byLink[link.ID()]
	if !ok {
		return
	}
	s.ledger[id] = game.NewWagerVector()
	s.publishBets()
}

// updateParticipant overwrites the stored record, then runs the
// eviction scan and rebroadcasts the leaderboard unconditionally.
// No diffing, rooms are small.
func (s *Session) updateParticipant(link transport.Link, p protocol.Participant) {
	id, ok := s.byLink[link.ID()]
	if !ok {
		return
	}
	p.ID = id // the link decides who you are, not the payload
	p.IsHost = false
	s.members[id] = p

	s.evictScan()
	s.publishLeaderboard()
}

// remove handles a departed member (link close or eviction already
// stripped the maps). Removal changes the aggregate, so it goes back
// out too.
func (s *Session) remove(id string) {
	p, ok := s.members[id]
	if !ok {
		return
	}
	delete(s.members, id)
	delete(s.ledger, id)
	delete(s.links, id)
	// no link may keep routing to a removed member
	for lid, mid := range s.byLink {
		if mid == id {
			delete(s.byLink, lid)
		}
	}

	s.broadcast(protocol.PlayerLeft{DisplayName: p.DisplayName})
	s.publishBets()
	s.publishLeaderboard()
	s.emit(MemberLeft{DisplayName: p.DisplayName})
	s.log.Infow("left", "name", p.DisplayName, "id", id)
}

// evictScan expels every non-host member below the stay threshold:
// targeted kick message, "left" notice to the rest, grace-delayed link
// close, registry/ledger removal. The aggregate and leaderboard
// rebroadcast once at the end no matter how many fell together. The
// host is categorically exempt, broke or not.
func (s *Session) evictScan() {
	var expelled []string
	for id, p := range s.members {
		if !p.IsHost && p.Balance < s.cfg.MinBalanceToStay {
			expelled = append(expelled, id)
		}
	}
	if len(expelled) == 0 {
		return
	}

	for _, id := range expelled {
		p := s.members[id]
		link := s.links[id]
		if link != nil {
			s.sendTo(link, protocol.KickedNoMoney{})
			s.closeAfterGrace(link)
			delete(s.byLink, link.ID())
		}
		delete(s.members, id)
		delete(s.ledger, id)
		delete(s.links, id)

		s.broadcast(protocol.PlayerLeft{DisplayName: p.DisplayName})
		s.emit(MemberLeft{DisplayName: p.DisplayName})
		s.log.Infow("evicted", "name", p.DisplayName, "balance", p.Balance)
	}

	s.publishBets()
	s.publishLeaderboard()
}

// closeAfterGrace tears a link down a beat after its final message was
// queued, so the message actually transmits. A transport nicety, not a
// protocol rule.
func (s *Session) closeAfterGrace(link transport.Link) {
	s.clock.AfterFunc(s.cfg.KickGrace, func() {
		_ = link.Close()
	})
}

// placeOwnBet is the host betting its own money: debit first so the
// balance can never go negative, then the same ledger path as everyone
// else.
func (s *Session) placeOwnBet(item game.Item) {
	amount := s.cfg.WagerStep
	if !game.ValidItem(item) {
		return
	}
	if s.self.Balance < amount {
		s.log.Infow("not enough balance to bet", "balance", s.self.Balance)
		return
	}
	s.self.Balance -= amount
	s.members[s.self.ID] = s.self
	s.ledger[s.self.ID].Add(item, amount)

	s.publishBets()
	s.publishLeaderboard()
}

func (s *Session) resetOwnBets() {
	refund := s.ledger[s.self.ID].Total()
	s.self.Balance += refund
	s.members[s.self.ID] = s.self
	s.ledger[s.self.ID] = game.NewWagerVector()

	s.publishBets()
	s.publishLeaderboard()
}

// publishBets recomputes the aggregate from the ledger and broadcasts
// it. Always recomputed at publish time, never a cached partial sum.
func (s *Session) publishBets() {
	agg := s.aggregate()
	s.broadcast(protocol.UpdateGlobalBets{Bets: agg})
	s.emit(BetsChanged{Bets: agg})
}

func (s *Session) publishLeaderboard() {
	members := s.memberList()
	s.broadcast(protocol.LeaderboardUpdate{Members: members})
	s.emit(LeaderboardChanged{Members: members})
}
