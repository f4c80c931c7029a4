package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baucua-game/baucua/internal/client"
	"github.com/baucua-game/baucua/internal/config"
	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
	"github.com/baucua-game/baucua/internal/room"
	"github.com/baucua-game/baucua/internal/transport"
)

func runJoin(ctx context.Context, net transport.Network, code, name string, cfg config.Config, log *zap.SugaredLogger) error {
	link, events, err := net.Dial(ctx, room.Resolve(code))
	if err != nil {
		pterm.Error.Println("could not reach the room:", err)
		return err
	}

	cand := protocol.Participant{
		ID:          uuid.NewString(),
		DisplayName: name,
		Balance:     cfg.StartingBalance,
	}
	c := client.New(ctx, link, events, cand, cfg.WagerStep, log)
	pterm.Info.Printfln("joining room %s as %s...", code, name)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-c.Events():
				if done := renderClientEvent(ev); done {
					// the session is over; don't wait for the player
					// to press enter
					os.Exit(0)
				}
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		defer func() { c.Inbox() <- client.Shutdown{} }()
		sc := bufio.NewScanner(os.Stdin)
		printHelp(false)
		for sc.Scan() {
			line := strings.Fields(strings.TrimSpace(sc.Text()))
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case "bet":
				if len(line) < 2 {
					pterm.Warning.Println("bet what? try: bet crab")
					continue
				}
				c.Inbox() <- client.PlaceBet{Item: game.Item(line[1])}
			case "reset":
				c.Inbox() <- client.ResetBets{}
			case "quit":
				return nil
			default:
				printHelp(false)
			}
		}
		return sc.Err()
	})

	return g.Wait()
}

// renderClientEvent prints one update; true means the session is over
// for us and the UI loop should stop.
func renderClientEvent(ev client.Event) bool {
	switch e := ev.(type) {
	case client.StatusChanged:
		switch e.Status {
		case client.StatusJoined:
			pterm.Success.Println("you're in")
		case client.StatusRejected:
			pterm.Error.Printfln("turned away: %s", e.Reason)
			return true
		case client.StatusEvicted:
			pterm.Error.Println("you're out of money, kicked from the table")
			return true
		case client.StatusOffline:
			pterm.Error.Println("connection lost")
			return true
		}
	case client.BetsChanged:
		renderBets(e.Bets)
	case client.LeaderboardChanged:
		renderLeaderboard(e.Members)
	case client.PlayerNotice:
		if e.Left {
			pterm.Info.Printfln("%s left the table", e.DisplayName)
		} else {
			pterm.Success.Printfln("%s sat down", e.DisplayName)
		}
	case client.RoundStarted:
		pterm.Info.Println("shaking the dice...")
	case client.RoundSettled:
		renderOutcome(e.Outcome)
		pterm.Success.Printfln("balance now %d", e.Balance)
	}
	return false
}
