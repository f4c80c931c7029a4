package main

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
)

func renderBets(bets game.WagerVector) {
	rows := pterm.TableData{{"item", "staked"}}
	for _, it := range game.Items {
		rows = append(rows, []string{string(it), strconv.Itoa(bets[it])})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func renderLeaderboard(members []protocol.Participant) {
	rows := pterm.TableData{{"player", "balance"}}
	for _, p := range members {
		name := p.DisplayName
		if p.IsHost {
			name += " (host)"
		}
		rows = append(rows, []string{name, strconv.Itoa(p.Balance)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func renderOutcome(outcome game.Outcome) {
	faces := make([]string, len(outcome))
	for i, it := range outcome {
		faces[i] = string(it)
	}
	pterm.DefaultBox.WithTitle("dice").Println(strings.Join(faces, " | "))
}
