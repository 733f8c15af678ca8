package settlement

import (
	"fmt"
	"strings"

	appErr "skins-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// Team is one scoring unit. Members are golfer ids in roster order.
type Team struct {
	ID      int64
	Name    string
	Members []int64
}

type Score struct {
	TeamID  int64
	Hole    int
	Strokes int
}

// Input is everything Settle needs. PerHoleSkinValue and CTHPayoutAmount are the
// flat values evaluated when the round was created.
type Input struct {
	RoundStatus      string
	NumPlayers       int
	TotalPot         decimal.Decimal
	PerHoleSkinValue decimal.Decimal
	CTHPayoutAmount  decimal.Decimal
	Teams            []Team
	Scores           []Score
	CTHWinnerID      int64 // 0 when nobody is designated
	OverrideTeamID   *int64
}

type HoleResult struct {
	HoleNumber     int             `json:"holeNumber"`
	WinningTeamID  *int64          `json:"winningTeamId"`
	AmountAwarded  decimal.Decimal `json:"amountAwarded"`
	IsCarryOverWin bool            `json:"isCarryOverWin"`
	CarriedForward decimal.Decimal `json:"carriedForward"`
}

type CTHDetail struct {
	GolferID int64           `json:"golferId"`
	TeamID   int64           `json:"teamId"`
	Amount   decimal.Decimal `json:"amount"`
}

type OverallPayout struct {
	TeamID       int64           `json:"teamId"`
	TotalStrokes int             `json:"totalStrokes"`
	Amount       decimal.Decimal `json:"amount"`
}

type TeamSummary struct {
	TeamID       int64           `json:"teamId"`
	Name         string          `json:"name"`
	TotalStrokes int             `json:"totalStrokes"`
	HolesWon     int             `json:"holesWon"`
	SkinsWon     decimal.Decimal `json:"skinsWon"`
}

// PlayerPayout is one participant's breakdown; Total is always the sum of the parts.
type PlayerPayout struct {
	GolferID        int64           `json:"golferId"`
	TeamID          int64           `json:"teamId"`
	SkinsWinnings   decimal.Decimal `json:"skinsWinnings"`
	CTHWinnings     decimal.Decimal `json:"cthWinnings"`
	OverallWinnings decimal.Decimal `json:"overallWinnings"`
	Total           decimal.Decimal `json:"total"`
}

type ReconciliationStatus string

const (
	StatusBalanced    ReconciliationStatus = "BALANCED"
	StatusDiscrepancy ReconciliationStatus = "DISCREPANCY DETECTED"
)

type Reconciliation struct {
	Status      ReconciliationStatus `json:"status"`
	Distributed decimal.Decimal      `json:"distributed"`
	Delta       decimal.Decimal      `json:"delta"`
	Tolerance   decimal.Decimal      `json:"tolerance"`
	Message     string               `json:"message"`
}

func (r Reconciliation) Balanced() bool { return r.Status == StatusBalanced }

// Result is the payout ledger for one round.
type Result struct {
	NumPlayers       int             `json:"numPlayers"`
	TotalPot         decimal.Decimal `json:"totalPot"`
	PerHoleSkinValue decimal.Decimal `json:"perHoleSkinValue"`
	Holes            []HoleResult    `json:"holes"`
	TotalSkinsPaid   decimal.Decimal `json:"totalSkinsPaid"`
	FinalRollover    decimal.Decimal `json:"finalRollover"`
	CTH              *CTHDetail      `json:"cth,omitempty"`
	CTHPaid          decimal.Decimal `json:"cthPaid"`
	OverallWinners   []OverallPayout `json:"overallWinners"`
	TotalOverallPaid decimal.Decimal `json:"totalOverallPaid"`
	Teams            []TeamSummary   `json:"teams"`
	Players          []PlayerPayout  `json:"players"`
	Reconciliation   Reconciliation  `json:"reconciliation"`
}

// Player returns the breakdown for golferID, if present.
func (r *Result) Player(golferID int64) (PlayerPayout, bool) {
	for _, p := range r.Players {
		if p.GolferID == golferID {
			return p, true
		}
	}
	return PlayerPayout{}, false
}

// TieError lists the teams sharing the lowest total when no override was given.
type TieError struct {
	TeamIDs []int64
	Strokes int
}

func (e *TieError) Error() string {
	ids := make([]string, len(e.TeamIDs))
	for i, id := range e.TeamIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s: teams %s tied at %d strokes", appErr.ErrSettlementTie, strings.Join(ids, ", "), e.Strokes)
}

func (e *TieError) Is(target error) bool {
	return target == appErr.ErrSettlementTie
}
