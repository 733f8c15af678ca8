package settlement

import (
	"fmt"

	"skins-service/internal/model"
	appErr "skins-service/pkg/errors"
)

type inputIndex struct {
	teamOf  map[int64]int64       // golfer -> team
	strokes map[int64]map[int]int // team -> hole -> strokes
	totals  map[int64]int         // team -> 18-hole total
}

func notReady(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", appErr.ErrSettlementNotReady, fmt.Sprintf(format, args...))
}

// checkInput enforces the input contract. Violations are caller bugs, not
// business outcomes, and are reported as ErrSettlementNotReady.
func checkInput(in Input) (*inputIndex, error) {
	switch in.RoundStatus {
	case model.RoundStatusFinalized:
		return nil, appErr.ErrAlreadyFinalized
	case model.RoundStatusCompleted:
	default:
		return nil, notReady("round status is %q", in.RoundStatus)
	}

	if len(in.Teams) == 0 {
		return nil, notReady("round has no teams")
	}
	if in.TotalPot.IsNegative() || in.PerHoleSkinValue.IsNegative() || in.CTHPayoutAmount.IsNegative() {
		return nil, notReady("pot, skin value and CTH payout must not be negative")
	}

	idx := &inputIndex{
		teamOf:  make(map[int64]int64),
		strokes: make(map[int64]map[int]int, len(in.Teams)),
		totals:  make(map[int64]int, len(in.Teams)),
	}

	participants := 0
	for _, team := range in.Teams {
		if _, dup := idx.strokes[team.ID]; dup {
			return nil, notReady("team %d listed twice", team.ID)
		}
		idx.strokes[team.ID] = make(map[int]int, model.HolesPerRound)

		if len(team.Members) < model.MinTeamSize || len(team.Members) > model.MaxTeamSize {
			return nil, notReady("team %d has %d members, expected %d-%d",
				team.ID, len(team.Members), model.MinTeamSize, model.MaxTeamSize)
		}
		for _, golferID := range team.Members {
			if other, dup := idx.teamOf[golferID]; dup {
				return nil, notReady("golfer %d is on teams %d and %d", golferID, other, team.ID)
			}
			idx.teamOf[golferID] = team.ID
			participants++
		}
	}
	if participants != in.NumPlayers {
		return nil, notReady("round has %d players but teams list %d", in.NumPlayers, participants)
	}

	for _, s := range in.Scores {
		holes, ok := idx.strokes[s.TeamID]
		if !ok {
			return nil, notReady("score for unknown team %d", s.TeamID)
		}
		if s.Hole < 1 || s.Hole > model.HolesPerRound {
			return nil, notReady("team %d has a score for hole %d", s.TeamID, s.Hole)
		}
		if s.Strokes <= 0 {
			return nil, notReady("team %d hole %d has %d strokes", s.TeamID, s.Hole, s.Strokes)
		}
		if _, dup := holes[s.Hole]; dup {
			return nil, notReady("team %d has two scores for hole %d", s.TeamID, s.Hole)
		}
		holes[s.Hole] = s.Strokes
		idx.totals[s.TeamID] += s.Strokes
	}
	for _, team := range in.Teams {
		if n := len(idx.strokes[team.ID]); n != model.HolesPerRound {
			return nil, notReady("team %d has %d of %d holes scored", team.ID, n, model.HolesPerRound)
		}
	}

	if in.CTHWinnerID != 0 {
		if _, ok := idx.teamOf[in.CTHWinnerID]; !ok {
			return nil, notReady("CTH winner %d is not a participant", in.CTHWinnerID)
		}
	} else if in.CTHPayoutAmount.IsPositive() {
		return nil, notReady("CTH payout is %s but no CTH winner was given", in.CTHPayoutAmount.StringFixed(2))
	}

	if in.OverrideTeamID != nil {
		if _, ok := idx.strokes[*in.OverrideTeamID]; !ok {
			return nil, fmt.Errorf("%w: team %d is not in this round", appErr.ErrInvalidOverride, *in.OverrideTeamID)
		}
	}

	return idx, nil
}
