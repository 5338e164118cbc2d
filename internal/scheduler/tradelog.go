package scheduler

import (
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/reporter"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// formatOrderLog renders an order as one trade-log line.
func formatOrderLog(o models.TickOrder) string {
	price := humanize.Commaf(math.Round(o.Price*100) / 100)
	return fmt.Sprintf("[%s] %s %s %.5f @ $%s | %s",
		o.Time.UTC().Format("2006-01-02 15:04"), o.BotName, o.Side, o.Qty, price, o.Reason)
}

func renderResult(result models.RunResult) string {
	var b strings.Builder
	reporter.RenderRunResult(&b, result)
	return b.String()
}
