package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/lox/blackjackforbots/internal/statistics"
	"github.com/pterm/pterm"
)

// statsTable renders per-player results plus a total row
func statsTable(players map[string]statistics.Stats, total statistics.Stats) (string, error) {
	data := pterm.TableData{
		{"Player", "Games", "Wins", "BJ", "Push", "Loss", "Bust", "Surr", "Net", "Mean", "StdDev", "Edge %"},
	}

	ids := make([]string, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		data = append(data, statsRow(id, players[id]))
	}
	if len(ids) > 1 {
		data = append(data, statsRow(pterm.Bold.Sprint("TOTAL"), total))
	}

	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
}

func statsRow(name string, s statistics.Stats) []string {
	return []string{
		name,
		fmt.Sprint(s.Games),
		fmt.Sprint(s.Wins),
		fmt.Sprint(s.Blackjacks),
		fmt.Sprint(s.Pushes),
		fmt.Sprint(s.Losses),
		fmt.Sprint(s.Busts),
		fmt.Sprint(s.Surrenders),
		colorNet(s.Net),
		fmt.Sprintf("%.3f", s.Mean()),
		fmt.Sprintf("%.3f", s.StdDev()),
		fmt.Sprintf("%.2f", s.HouseEdge()*100),
	}
}

func colorNet(net int64) string {
	switch {
	case net > 0:
		return pterm.Green(fmt.Sprintf("%+d", net))
	case net < 0:
		return pterm.Red(fmt.Sprintf("%+d", net))
	default:
		return "0"
	}
}

// printSummary writes the confidence interval line under a table
func printSummary(w io.Writer, total statistics.Stats) {
	lo, hi := total.ConfidenceInterval95()
	fmt.Fprintf(w, "Win rate %.1f%%, mean %.3f coins/game (95%% CI %.3f to %.3f)\n",
		total.WinRate()*100, total.Mean(), lo, hi)
}
