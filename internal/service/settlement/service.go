package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"skins-service/internal/model"
	appErr "skins-service/pkg/errors"
	"skins-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const EventRoundFinalized = "round.finalized"

// Notifier receives events after a successful commit.
type Notifier interface {
	Publish(roundID int64, event string, data interface{})
}

type Service struct {
	db       *gorm.DB
	locker   Locker
	notifier Notifier
}

type FinalizeRequest struct {
	RoundID           int64
	CTHWinnerGolferID int64
	OverrideTeamID    *int64
	FinalizedBy       int64
}

type Outcome struct {
	Ledger model.SettlementLedger `json:"ledger"`
	Result *Result                `json:"result"`
}

// NewService accepts a nil locker or notifier.
func NewService(db *gorm.DB, locker Locker, notifier Notifier) *Service {
	return &Service{db: db, locker: locker, notifier: notifier}
}

// FinalizeRound settles a completed round. The ledger, payouts, hole markers and
// the completed -> finalized transition commit together or not at all.
func (s *Service) FinalizeRound(ctx context.Context, req FinalizeRequest) (*Outcome, error) {
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, req.RoundID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, appErr.ErrSettlementInProgress
		}
		defer s.locker.Release(ctx, req.RoundID)
	}

	var out Outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		round, err := loadRound(tx, req.RoundID)
		if err != nil {
			return err
		}

		res, err := Settle(buildInput(round, req))
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":       model.RoundStatusFinalized,
			"finalized_at": now,
			"finalized_by": req.FinalizedBy,
		}
		if res.CTH != nil {
			updates["cth_winner_golfer_id"] = res.CTH.GolferID
		}
		if len(res.OverallWinners) > 0 {
			updates["overall_winner_team_id"] = res.OverallWinners[0].TeamID
		}
		result := tx.Model(&model.Round{}).
			Where("id = ? AND status = ?", round.ID, model.RoundStatusCompleted).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return appErr.ErrAlreadyFinalized
		}

		for _, hole := range res.Holes {
			if hole.WinningTeamID == nil {
				continue
			}
			if err := tx.Model(&model.HoleScore{}).
				Where("round_id = ? AND team_id = ? AND hole_number = ?", round.ID, *hole.WinningTeamID, hole.HoleNumber).
				Updates(map[string]interface{}{
					"is_skin_winner": true,
					"skin_amount":    hole.AmountAwarded,
				}).Error; err != nil {
				return err
			}
		}

		raw, err := json.Marshal(res)
		if err != nil {
			return err
		}
		ledger := model.SettlementLedger{
			Ref:                uuid.NewString(),
			RoundID:            round.ID,
			NumPlayers:         res.NumPlayers,
			TotalPot:           res.TotalPot,
			TotalSkinsPaid:     res.TotalSkinsPaid,
			FinalRollover:      res.FinalRollover,
			CTHPaid:            res.CTHPaid,
			TotalOverallPaid:   res.TotalOverallPaid,
			Balanced:           res.Reconciliation.Balanced(),
			Delta:              res.Reconciliation.Delta,
			ReconciliationNote: res.Reconciliation.Message,
			ResultJSON:         datatypes.JSON(raw),
			FinalizedBy:        req.FinalizedBy,
			CreatedAt:          now,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return err
		}

		payouts := make([]model.PlayerPayout, 0, len(res.Players))
		for _, p := range res.Players {
			payouts = append(payouts, model.PlayerPayout{
				LedgerID:        ledger.ID,
				RoundID:         round.ID,
				GolferID:        p.GolferID,
				TeamID:          p.TeamID,
				SkinsWinnings:   p.SkinsWinnings,
				CTHWinnings:     p.CTHWinnings,
				OverallWinnings: p.OverallWinnings,
				Total:           p.Total,
			})
		}
		if len(payouts) > 0 {
			if err := tx.Create(&payouts).Error; err != nil {
				return err
			}
		}
		ledger.Payouts = payouts

		out = Outcome{Ledger: ledger, Result: res}
		return nil
	})
	if err != nil {
		logger.Log.Info("settlement rejected",
			zap.Int64("roundID", req.RoundID),
			zap.Error(err),
		)
		return nil, err
	}

	rec := out.Result.Reconciliation
	logger.Log.Info("round finalized",
		zap.Int64("roundID", req.RoundID),
		zap.String("ledgerRef", out.Ledger.Ref),
		logger.Money("totalPot", out.Result.TotalPot),
		logger.Money("skinsPaid", out.Result.TotalSkinsPaid),
		logger.Money("rollover", out.Result.FinalRollover),
		logger.Money("overallPaid", out.Result.TotalOverallPaid),
	)
	if !rec.Balanced() {
		logger.Log.Warn("settlement reconciliation discrepancy",
			zap.Int64("roundID", req.RoundID),
			logger.Money("delta", rec.Delta),
			zap.String("message", rec.Message),
		)
	}

	if s.notifier != nil {
		s.notifier.Publish(req.RoundID, EventRoundFinalized, out.Result)
	}
	return &out, nil
}

// Preview runs the engine against the stored round without writing anything,
// so organizers can see a tie before committing.
func (s *Service) Preview(ctx context.Context, req FinalizeRequest) (*Result, error) {
	round, err := loadRound(s.db.WithContext(ctx), req.RoundID)
	if err != nil {
		return nil, err
	}
	return Settle(buildInput(round, req))
}

func (s *Service) GetLedger(ctx context.Context, roundID int64) (*model.SettlementLedger, error) {
	var ledger model.SettlementLedger
	err := s.db.WithContext(ctx).
		Preload("Payouts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("round_id = ?", roundID).
		First(&ledger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrLedgerNotFound
		}
		return nil, err
	}
	return &ledger, nil
}

func loadRound(db *gorm.DB, roundID int64) (*model.Round, error) {
	var round model.Round
	err := db.
		Preload("Teams", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Teams.Members", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Scores").
		First(&round, roundID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

func buildInput(round *model.Round, req FinalizeRequest) Input {
	teams := make([]Team, 0, len(round.Teams))
	for _, t := range round.Teams {
		members := make([]int64, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, m.GolferID)
		}
		teams = append(teams, Team{ID: t.ID, Name: t.Name, Members: members})
	}

	scores := make([]Score, 0, len(round.Scores))
	for _, sc := range round.Scores {
		scores = append(scores, Score{TeamID: sc.TeamID, Hole: sc.HoleNumber, Strokes: sc.Strokes})
	}

	return Input{
		RoundStatus:      round.Status,
		NumPlayers:       round.NumPlayers,
		TotalPot:         round.TotalPot,
		PerHoleSkinValue: round.PerHoleSkinValue,
		CTHPayoutAmount:  round.CTHPayoutAmount,
		Teams:            teams,
		Scores:           scores,
		CTHWinnerID:      req.CTHWinnerGolferID,
		OverrideTeamID:   req.OverrideTeamID,
	}
}
