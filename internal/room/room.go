// Package room owns room identity: the short shareable code and the
// endpoint name derived from it.
package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/baucua-game/baucua/internal/transport"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// every endpoint name is the room code behind this prefix, so a
	// code is all you need to find the host
	endpointPrefix = "baucua-"
)

// ErrNetworkUnavailable means the transport could not bind at all.
// There is no retry for this; the caller shows it to the player.
var ErrNetworkUnavailable = errors.New("network unavailable")

// Handle is a live room: the code players type in and the bound
// endpoint the host serves it from.
type Handle struct {
	Code     string
	Endpoint transport.Endpoint
}

// GenerateCode returns a 6-character code over A-Z0-9.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// Resolve derives the endpoint name for a code. Pure string work, no
// I/O, can't fail.
func Resolve(code string) string {
	return endpointPrefix + strings.ToUpper(code)
}

// Create generates a code and binds its endpoint, regenerating on a
// name collision for as long as it takes. With 36^6 codes and rooms
// numbering in the tens, back-to-back collisions die off fast enough
// that an unbounded loop is the honest policy; a retry cap would just
// be a number nobody can defend. Any other transport failure comes
// back as ErrNetworkUnavailable and is not retried.
func Create(net transport.Network) (*Handle, error) {
	for {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		}
		ep, err := net.Listen(Resolve(code))
		if errors.Is(err, transport.ErrNameTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		}
		return &Handle{Code: code, Endpoint: ep}, nil
	}
}
