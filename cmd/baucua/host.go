package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baucua-game/baucua/internal/config"
	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/room"
	"github.com/baucua-game/baucua/internal/session"
	"github.com/baucua-game/baucua/internal/transport"
)

func runHost(ctx context.Context, net transport.Network, name string, cfg config.Config, log *zap.SugaredLogger) error {
	handle, err := room.Create(net)
	if err != nil {
		pterm.Error.Println("could not open a room:", err)
		return err
	}
	pterm.DefaultBox.WithTitle("room code").Println(handle.Code)
	pterm.Info.Printfln("players join with: baucua -join %s", handle.Code)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := session.New(ctx, handle.Endpoint, name, cfg.StartingBalance,
		cfg.Session(), session.RealClock(), rng, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-s.Events():
				renderSessionEvent(ev)
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		defer func() { s.Inbox() <- session.Shutdown{} }()
		sc := bufio.NewScanner(os.Stdin)
		printHelp(true)
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
				s.Inbox() <- session.PlaceBet{Item: game.Item(line[1])}
			case "reset":
				s.Inbox() <- session.ResetBets{}
			case "roll":
				s.Inbox() <- session.StartRound{}
			case "quit":
				return nil
			default:
				printHelp(true)
			}
		}
		return sc.Err()
	})

	return g.Wait()
}

func renderSessionEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.MemberJoined:
		pterm.Success.Printfln("%s sat down", e.DisplayName)
	case session.MemberLeft:
		pterm.Info.Printfln("%s left the table", e.DisplayName)
	case session.BetsChanged:
		renderBets(e.Bets)
	case session.LeaderboardChanged:
		renderLeaderboard(e.Members)
	case session.RoundStarted:
		pterm.Info.Println("shaking the dice...")
	case session.RoundSettled:
		renderOutcome(e.Outcome)
		pterm.Success.Printfln("your return: %d (balance %d)", e.Return, e.Balance)
	}
}

func printHelp(host bool) {
	items := make([]string, len(game.Items))
	for i, it := range game.Items {
		items[i] = string(it)
	}
	fmt.Println("commands: bet <" + strings.Join(items, "|") + ">, reset, quit")
	if host {
		fmt.Println("host only: roll")
	}
}
