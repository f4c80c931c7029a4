package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire frame for every message: a tag for routing plus
// the payload kept as raw JSON until the tag says how to decode it.
type Envelope struct {
	Type    Tag             `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps a payload in its envelope.
func Encode(msg Msg) (Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msg.Tag(), err)
	}
	return Envelope{Type: msg.Tag(), Payload: payload}, nil
}

// Decode turns an envelope back into its typed payload. An unknown tag
// decodes to (nil, nil): the protocol is forward-extensible and routers
// skip what they don't recognize rather than erroring.
func Decode(env Envelope) (Msg, error) {
	var msg Msg
	switch env.Type {
	case TagJoinRequest:
		msg = &JoinRequest{}
	case TagJoinAccepted:
		msg = &JoinAccepted{}
	case TagJoinRejected:
		msg = &JoinRejected{}
	case TagPlayerJoined:
		msg = &PlayerJoined{}
	case TagPlayerLeft:
		msg = &PlayerLeft{}
	case TagKickedNoMoney:
		msg = &KickedNoMoney{}
	case TagPlaceBet:
		msg = &PlaceBet{}
	case TagResetBets:
		msg = &ResetBets{}
	case TagPlayerUpdate:
		msg = &PlayerUpdate{}
	case TagUpdateGlobalBets:
		msg = &UpdateGlobalBets{}
	case TagLeaderboardUpdate:
		msg = &LeaderboardUpdate{}
	case TagShakeStart:
		msg = &ShakeStart{}
	case TagShakeResult:
		msg = &ShakeResult{}
	default:
		return nil, nil
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return msg, nil
}
