package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reconcile checks the components of res against the pot. The tolerance of one
// cent per player absorbs per-player rounding; a discrepancy is diagnostic only.
func Reconcile(res *Result) Reconciliation {
	distributed := res.TotalSkinsPaid.Add(res.CTHPaid).Add(res.TotalOverallPaid).Add(res.FinalRollover)
	delta := distributed.Sub(res.TotalPot)
	tolerance := cent.Mul(decimal.NewFromInt(int64(res.NumPlayers)))

	rec := Reconciliation{
		Status:      StatusBalanced,
		Distributed: distributed,
		Delta:       delta,
		Tolerance:   tolerance,
	}
	if delta.Abs().GreaterThan(tolerance) {
		rec.Status = StatusDiscrepancy
	}

	msg := fmt.Sprintf("Pot $%s | Skins $%s | Rollover $%s | CTH $%s | Overall $%s | Sum $%s | %s",
		res.TotalPot.StringFixed(2),
		res.TotalSkinsPaid.StringFixed(2),
		res.FinalRollover.StringFixed(2),
		res.CTHPaid.StringFixed(2),
		res.TotalOverallPaid.StringFixed(2),
		distributed.StringFixed(2),
		rec.Status,
	)
	if rec.Status == StatusDiscrepancy {
		msg += fmt.Sprintf(" (delta $%s)", delta.StringFixed(2))
	}
	rec.Message = msg
	return rec
}
