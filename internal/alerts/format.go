package alerts

import (
	"fmt"
	"time"

	"github.com/unnode001/basis-arbitrage-bot/internal/paper"
)

func FormatOpen(baseAsset string, report paper.OpenReport) string {
	return fmt.Sprintf(
		"opened %s %s\nspot %s / futures %s\nbasis %s%%\nfees %s",
		report.Position.Amount.StringFixed(6), baseAsset,
		report.Position.EntrySpotPrice.String(),
		report.Position.EntryFuturesPrice.String(),
		report.Position.EntryBasisPct.StringFixed(4),
		report.SpotFee.Add(report.FuturesFee).StringFixed(4),
	)
}

func FormatClose(baseAsset string, report paper.CloseReport) string {
	return fmt.Sprintf(
		"closed %s %s after %s\nexit spot %s / futures %s\nfees %s\nnet pnl %s",
		report.Position.Amount.StringFixed(6), baseAsset,
		report.HeldFor.Truncate(time.Second).String(),
		report.ExitSpotPrice.String(),
		report.ExitFuturesPrice.String(),
		report.TotalFees.StringFixed(4),
		report.NetPnL.StringFixed(4),
	)
}
