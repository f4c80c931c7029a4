package protocol

import (
	"github.com/baucua-game/baucua/internal/game"
)

// Participant is the per-player record the host keeps and the
// leaderboard broadcasts carry. ID is opaque and stable for the life
// of the link; the host's own ID is its endpoint name.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Balance     int    `json:"balance"`
	IsHost      bool   `json:"is_host,omitempty"`
}

// Tag names a message kind on the wire.
type Tag string

const (
	TagJoinRequest       Tag = "JOIN_REQUEST"
	TagJoinAccepted      Tag = "JOIN_ACCEPTED"
	TagJoinRejected      Tag = "JOIN_REJECTED"
	TagPlayerJoined      Tag = "PLAYER_JOINED"
	TagPlayerLeft        Tag = "PLAYER_LEFT"
	TagKickedNoMoney     Tag = "KICKED_NO_MONEY"
	TagPlaceBet          Tag = "PLACE_BET"
	TagResetBets         Tag = "RESET_BETS"
	TagPlayerUpdate      Tag = "PLAYER_UPDATE"
	TagUpdateGlobalBets  Tag = "UPDATE_GLOBAL_BETS"
	TagLeaderboardUpdate Tag = "LEADERBOARD_UPDATE"
	TagShakeStart        Tag = "SHAKE_START"
	TagShakeResult       Tag = "SHAKE_RESULT"
)

// Msg is the closed set of protocol payloads. Every payload struct
// carries its own Tag so encoding can't mismatch type and body.
type Msg interface {
	Tag() Tag
	isMsg()
}

// Client -> host: ask to be admitted with this candidate record.
type JoinRequest struct {
	Candidate Participant `json:"candidate"`
}

// Host -> one client: admission snapshot. This is the only resync
// mechanism in the protocol; there is no incremental catch-up.
type JoinAccepted struct {
	Bets    game.WagerVector `json:"bets"`
	Members []Participant    `json:"members"`
}

// Host -> one client: admission refused, with a reason fit to show.
type JoinRejected struct {
	Reason string `json:"reason"`
}

// Host -> all: somebody came or went. Display name only; the member
// list itself travels in LeaderboardUpdate.
type PlayerJoined struct {
	DisplayName string `json:"display_name"`
}

type PlayerLeft struct {
	DisplayName string `json:"display_name"`
}

// Host -> one client: you fell below the stay threshold.
type KickedNoMoney struct{}

// Client -> host: stake Amount more on Item.
type PlaceBet struct {
	Item   game.Item `json:"item"`
	Amount int       `json:"amount"`
}

// Client -> host: clear my whole wager vector.
type ResetBets struct{}

// Client -> host (and host to itself, logically): overwrite my record.
type PlayerUpdate struct {
	Participant Participant `json:"participant"`
}

// Host -> all: the authoritative aggregate of everyone's bets.
type UpdateGlobalBets struct {
	Bets game.WagerVector `json:"bets"`
}

// Host -> all: the full member list.
type LeaderboardUpdate struct {
	Members []Participant `json:"members"`
}

// Host -> all: dice are shaking, outcome follows shortly.
type ShakeStart struct{}

// Host -> all: the three faces; settle yourselves.
type ShakeResult struct {
	Outcome game.Outcome `json:"outcome"`
}

func (JoinRequest) Tag() Tag       { return TagJoinRequest }
func (JoinAccepted) Tag() Tag      { return TagJoinAccepted }
func (JoinRejected) Tag() Tag      { return TagJoinRejected }
func (PlayerJoined) Tag() Tag      { return TagPlayerJoined }
func (PlayerLeft) Tag() Tag        { return TagPlayerLeft }
func (KickedNoMoney) Tag() Tag     { return TagKickedNoMoney }
func (PlaceBet) Tag() Tag          { return TagPlaceBet }
func (ResetBets) Tag() Tag         { return TagResetBets }
func (PlayerUpdate) Tag() Tag      { return TagPlayerUpdate }
func (UpdateGlobalBets) Tag() Tag  { return TagUpdateGlobalBets }
func (LeaderboardUpdate) Tag() Tag { return TagLeaderboardUpdate }
func (ShakeStart) Tag() Tag        { return TagShakeStart }
func (ShakeResult) Tag() Tag       { return TagShakeResult }

func (JoinRequest) isMsg()       {}
func (JoinAccepted) isMsg()      {}
func (JoinRejected) isMsg()      {}
func (PlayerJoined) isMsg()      {}
func (PlayerLeft) isMsg()        {}
func (KickedNoMoney) isMsg()     {}
func (PlaceBet) isMsg()          {}
func (ResetBets) isMsg()         {}
func (PlayerUpdate) isMsg()      {}
func (UpdateGlobalBets) isMsg()  {}
func (LeaderboardUpdate) isMsg() {}
func (ShakeStart) isMsg()        {}
func (ShakeResult) isMsg()       {}
