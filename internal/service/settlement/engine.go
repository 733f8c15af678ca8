package settlement

import (
	"fmt"

	"skins-service/internal/model"
	appErr "skins-service/pkg/errors"

	"github.com/shopspring/decimal"
)

var cent = decimal.New(1, -2)

// Settle computes the full payout for one completed round. It is pure and
// holds no state between calls.
func Settle(in Input) (*Result, error) {
	idx, err := checkInput(in)
	if err != nil {
		return nil, err
	}

	res := &Result{
		NumPlayers:       in.NumPlayers,
		TotalPot:         in.TotalPot,
		PerHoleSkinValue: in.PerHoleSkinValue,
		Holes:            make([]HoleResult, 0, model.HolesPerRound),
		TotalSkinsPaid:   decimal.Zero,
		CTHPaid:          decimal.Zero,
		TotalOverallPaid: decimal.Zero,
	}

	teamSkins := make(map[int64]decimal.Decimal, len(in.Teams))
	holesWon := make(map[int64]int, len(in.Teams))

	// Skins. Hole n's stake depends on hole n-1, so this stays sequential.
	carry := decimal.Zero
	for hole := 1; hole <= model.HolesPerRound; hole++ {
		stake := in.PerHoleSkinValue.Add(carry)
		carry = decimal.Zero

		winner, ok := uniqueLowest(in.Teams, func(teamID int64) int {
			return idx.strokes[teamID][hole]
		})
		if !ok {
			carry = stake
			res.Holes = append(res.Holes, HoleResult{
				HoleNumber:     hole,
				AmountAwarded:  decimal.Zero,
				CarriedForward: stake,
			})
			continue
		}

		winnerID := winner
		res.Holes = append(res.Holes, HoleResult{
			HoleNumber:     hole,
			WinningTeamID:  &winnerID,
			AmountAwarded:  stake,
			IsCarryOverWin: !stake.Equal(in.PerHoleSkinValue),
			CarriedForward: decimal.Zero,
		})
		teamSkins[winner] = teamSkins[winner].Add(stake)
		holesWon[winner]++
		res.TotalSkinsPaid = res.TotalSkinsPaid.Add(stake)
	}
	res.FinalRollover = carry

	// Closest to the hole goes to one golfer, never split.
	if in.CTHPayoutAmount.IsPositive() {
		res.CTH = &CTHDetail{
			GolferID: in.CTHWinnerID,
			TeamID:   idx.teamOf[in.CTHWinnerID],
			Amount:   in.CTHPayoutAmount,
		}
		res.CTHPaid = in.CTHPayoutAmount
	}

	winners, err := resolveOverall(in, idx)
	if err != nil {
		return nil, err
	}

	pool := in.TotalPot.Sub(res.TotalSkinsPaid).Sub(res.FinalRollover).Sub(res.CTHPaid)
	teamOverall := make(map[int64]decimal.Decimal, len(winners))
	res.OverallWinners = make([]OverallPayout, 0, len(winners))
	if pool.IsPositive() {
		share := pool.Div(decimal.NewFromInt(int64(len(winners)))).RoundBank(2)
		for _, teamID := range winners {
			teamOverall[teamID] = share
			res.OverallWinners = append(res.OverallWinners, OverallPayout{
				TeamID:       teamID,
				TotalStrokes: idx.totals[teamID],
				Amount:       share,
			})
			res.TotalOverallPaid = res.TotalOverallPaid.Add(share)
		}
	} else {
		for _, teamID := range winners {
			res.OverallWinners = append(res.OverallWinners, OverallPayout{
				TeamID:       teamID,
				TotalStrokes: idx.totals[teamID],
				Amount:       decimal.Zero,
			})
		}
	}

	// Per-player aggregation in roster order.
	res.Teams = make([]TeamSummary, 0, len(in.Teams))
	res.Players = make([]PlayerPayout, 0, in.NumPlayers)
	for _, team := range in.Teams {
		res.Teams = append(res.Teams, TeamSummary{
			TeamID:       team.ID,
			Name:         team.Name,
			TotalStrokes: idx.totals[team.ID],
			HolesWon:     holesWon[team.ID],
			SkinsWon:     teamSkins[team.ID],
		})

		skinsShare := splitEven(teamSkins[team.ID], len(team.Members))
		overallShare := splitEven(teamOverall[team.ID], len(team.Members))
		for _, golferID := range team.Members {
			p := PlayerPayout{
				GolferID:        golferID,
				TeamID:          team.ID,
				SkinsWinnings:   skinsShare,
				CTHWinnings:     decimal.Zero,
				OverallWinnings: overallShare,
			}
			if res.CTH != nil && res.CTH.GolferID == golferID {
				p.CTHWinnings = res.CTH.Amount
			}
			p.Total = p.SkinsWinnings.Add(p.CTHWinnings).Add(p.OverallWinnings)
			res.Players = append(res.Players, p)
		}
	}

	res.Reconciliation = Reconcile(res)
	return res, nil
}

// uniqueLowest returns the only team holding the minimum, or false on a tie.
func uniqueLowest(teams []Team, strokes func(teamID int64) int) (int64, bool) {
	var (
		best    int64
		bestVal int
		count   int
	)
	for i, team := range teams {
		v := strokes(team.ID)
		switch {
		case i == 0 || v < bestVal:
			best, bestVal, count = team.ID, v, 1
		case v == bestVal:
			count++
		}
	}
	return best, count == 1
}

func resolveOverall(in Input, idx *inputIndex) ([]int64, error) {
	minTotal := 0
	for i, team := range in.Teams {
		if t := idx.totals[team.ID]; i == 0 || t < minTotal {
			minTotal = t
		}
	}
	lowest := make([]int64, 0, 2)
	for _, team := range in.Teams {
		if idx.totals[team.ID] == minTotal {
			lowest = append(lowest, team.ID)
		}
	}

	if in.OverrideTeamID != nil {
		override := *in.OverrideTeamID
		if idx.totals[override] != minTotal {
			return nil, fmt.Errorf("%w: team %d shot %d, lowest total is %d",
				appErr.ErrInvalidOverride, override, idx.totals[override], minTotal)
		}
		return []int64{override}, nil
	}
	if len(lowest) > 1 {
		return nil, &TieError{TeamIDs: lowest, Strokes: minTotal}
	}
	return lowest, nil
}

// splitEven divides amount across n recipients, rounding each share half-to-even to the cent.
func splitEven(amount decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 || amount.IsZero() {
		return decimal.Zero
	}
	if n == 1 {
		return amount
	}
	return amount.Div(decimal.NewFromInt(int64(n))).RoundBank(2)
}
