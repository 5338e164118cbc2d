package reporter

import (
	"bot-arena-go/internal/models"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Summary aggregates a finished run across all bots.
type Summary struct {
	Bots         int
	Profitable   int
	TotalTrades  int
	AvgReturnPct float64
	Best         models.BotResult
	Worst        models.BotResult
}

// Summarize computes the aggregate figures of result.
func Summarize(result models.RunResult) Summary {
	s := Summary{Bots: len(result.Bots)}
	if s.Bots == 0 {
		return s
	}
	s.Best, s.Worst = result.Bots[0], result.Bots[0]
	var sum float64
	for _, b := range result.Bots {
		sum += b.ReturnPct
		s.TotalTrades += b.Trades
		if b.ReturnPct > 0 {
			s.Profitable++
		}
		if b.ReturnPct > s.Best.ReturnPct {
			s.Best = b
		}
		if b.ReturnPct < s.Worst.ReturnPct {
			s.Worst = b
		}
	}
	s.AvgReturnPct = sum / float64(s.Bots)
	return s
}

// RenderLeaderboard writes rows as a ranked table.
func RenderLeaderboard(w io.Writer, title string, rows []models.LeaderboardRow) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "Bot", "Inspiration", "Equity", "Return %", "Trades", "Max DD %"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, r.Name, r.Inspiration,
			fmt.Sprintf("%.2f", r.Equity), fmt.Sprintf("%+.2f", r.ReturnPct), r.Trades, fmt.Sprintf("%.2f", r.DrawdownPct)})
	}
	t.Render()
}

// RenderRunResult writes the final standings of a run followed by its summary.
func RenderRunResult(w io.Writer, result models.RunResult) {
	title := fmt.Sprintf("%s | stage %s | %gx | %s", result.RunID, result.StageID, result.Speed, result.CompletedAt.Format("2006-01-02 15:04:05"))
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "Bot", "Equity", "Return %", "Trades", "Max DD %"})
	for i, b := range result.Bots {
		t.AppendRow(table.Row{i + 1, b.Name, fmt.Sprintf("%.2f", b.Equity), fmt.Sprintf("%+.4f", b.ReturnPct), b.Trades, fmt.Sprintf("%.4f", b.DrawdownPct)})
	}

	s := Summarize(result)
	if s.Bots > 0 {
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d profitable", s.Profitable, s.Bots), "",
			fmt.Sprintf("avg %+.2f", s.AvgReturnPct), s.TotalTrades, ""})
	}
	t.Render()
	if s.Bots > 0 {
		fmt.Fprintf(w, "Best: %s (%+.2f%%)  Worst: %s (%+.2f%%)\n", s.Best.Name, s.Best.ReturnPct, s.Worst.Name, s.Worst.ReturnPct)
	}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	if title != "" {
		t.SetTitle(title)
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	return t
}
