package finance

import (
	"fmt"
	"strings"

	"skins-service/internal/formula"
	"skins-service/internal/model"
	appErr "skins-service/pkg/errors"

	"github.com/shopspring/decimal"
)

const (
	FieldBuyIn     = "buyInAmount"
	FieldSkin      = "skinValueFormula"
	FieldCTH       = "cthPayoutFormula"
	FieldRemaining = "overallRemaining"
)

// ValidationIssue is one problem with a configuration. PlayerCount is 0 for
// problems that do not depend on the field size.
type ValidationIssue struct {
	PlayerCount int    `json:"playerCount"`
	Field       string `json:"field"`
	Message     string `json:"message"`
}

// ValidationError carries every issue found; it matches appErr.ErrConfigInvalid.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", appErr.ErrConfigInvalid, e.Issues[0].Message)
	}
	return fmt.Sprintf("%s: %d issues, first: %s", appErr.ErrConfigInvalid, len(e.Issues), e.Issues[0].Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == appErr.ErrConfigInvalid
}

// SimulationRow is the money layout of one player count.
type SimulationRow struct {
	PlayerCount         int             `json:"playerCount"`
	TotalPot            decimal.Decimal `json:"totalPot"`
	SkinValue           decimal.Decimal `json:"skinValue"`
	TotalPotentialSkins decimal.Decimal `json:"totalPotentialSkins"`
	CTHPayout           decimal.Decimal `json:"cthPayout"`
	Remaining           decimal.Decimal `json:"remaining"`
	OK                  bool            `json:"ok"`
}

// Validate checks a configuration across every supported player count.
func Validate(buyIn decimal.Decimal, skinFormula, cthFormula string) []ValidationIssue {
	_, issues := Simulate(buyIn, skinFormula, cthFormula)
	return issues
}

// Simulate evaluates the configuration for each player count and returns the
// rows it could compute along with every issue, ordered by player count.
func Simulate(buyIn decimal.Decimal, skinFormula, cthFormula string) ([]SimulationRow, []ValidationIssue) {
	var issues []ValidationIssue
	skinFormula = strings.TrimSpace(skinFormula)
	cthFormula = strings.TrimSpace(cthFormula)

	if !buyIn.IsPositive() {
		issues = append(issues, ValidationIssue{
			Field:   FieldBuyIn,
			Message: fmt.Sprintf("buy-in must be greater than zero, got %s", money(buyIn)),
		})
	}
	if skinFormula == "" {
		issues = append(issues, ValidationIssue{Field: FieldSkin, Message: "skin value formula is required"})
	}
	if cthFormula == "" {
		issues = append(issues, ValidationIssue{Field: FieldCTH, Message: "closest-to-hole formula is required"})
	}
	if len(issues) > 0 {
		return nil, issues
	}

	skinExpr, skinErr := formula.Compile(skinFormula)
	cthExpr, cthErr := formula.Compile(cthFormula)

	holes := decimal.NewFromInt(model.HolesPerRound)
	rows := make([]SimulationRow, 0, model.MaxPlayers-model.MinPlayers+1)
	for n := model.MinPlayers; n <= model.MaxPlayers; n++ {
		skin, err := evalFor(skinExpr, skinErr, n)
		if err != nil {
			issues = append(issues, ValidationIssue{
				PlayerCount: n,
				Field:       FieldSkin,
				Message:     fmt.Sprintf("with %d players the skin value formula failed: %v", n, err),
			})
		}
		cth, cthEvalErr := evalFor(cthExpr, cthErr, n)
		if cthEvalErr != nil {
			issues = append(issues, ValidationIssue{
				PlayerCount: n,
				Field:       FieldCTH,
				Message:     fmt.Sprintf("with %d players the closest-to-hole formula failed: %v", n, cthEvalErr),
			})
		}
		if err != nil || cthEvalErr != nil {
			continue
		}

		// Checks run on the cent amounts a round is priced with, not the raw result.
		skin = skin.RoundBank(2)
		cth = cth.RoundBank(2)

		row := SimulationRow{
			PlayerCount:         n,
			TotalPot:            buyIn.Mul(decimal.NewFromInt(int64(n))),
			SkinValue:           skin,
			TotalPotentialSkins: holes.Mul(skin),
			CTHPayout:           cth,
		}
		row.Remaining = row.TotalPot.Sub(row.TotalPotentialSkins).Sub(cth)

		ok := true
		if skin.IsNegative() {
			ok = false
			issues = append(issues, ValidationIssue{
				PlayerCount: n,
				Field:       FieldSkin,
				Message:     fmt.Sprintf("with %d players the skin value is negative (%s)", n, money(skin)),
			})
		}
		if cth.IsNegative() {
			ok = false
			issues = append(issues, ValidationIssue{
				PlayerCount: n,
				Field:       FieldCTH,
				Message:     fmt.Sprintf("with %d players the closest-to-hole payout is negative (%s)", n, money(cth)),
			})
		}
		if !row.Remaining.IsPositive() {
			ok = false
			issues = append(issues, ValidationIssue{
				PlayerCount: n,
				Field:       FieldRemaining,
				Message: fmt.Sprintf("with %d players the pot is %s but %d skins (%s) and CTH (%s) leave %s for the overall winner",
					n, money(row.TotalPot), model.HolesPerRound, money(row.TotalPotentialSkins), money(cth), money(row.Remaining)),
			})
		}
		row.OK = ok
		rows = append(rows, row)
	}
	return rows, issues
}

func evalFor(expr *formula.Expression, compileErr error, n int) (decimal.Decimal, error) {
	if compileErr != nil {
		return decimal.Zero, compileErr
	}
	return expr.EvaluateForPlayers(n)
}

func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}
