package round

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skins-service/internal/model"
	"skins-service/internal/service/finance"
	appErr "skins-service/pkg/errors"
	"skins-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	EventScoresUpdated  = "scores.updated"
	EventRoundCompleted = "round.completed"
)

type Notifier interface {
	Publish(roundID int64, event string, data interface{})
}

type Service struct {
	db       *gorm.DB
	finance  *finance.Service
	notifier Notifier
}

type TeamParams struct {
	Name      string
	GolferIDs []int64
}

type CreateParams struct {
	CourseName string
	PlayedOn   time.Time
	Teams      []TeamParams
	CreatedBy  int64
}

type HoleStroke struct {
	Hole    int `json:"hole"`
	Strokes int `json:"strokes"`
}

type ScoresUpdate struct {
	RoundID int64        `json:"roundId"`
	TeamID  int64        `json:"teamId"`
	Holes   []HoleStroke `json:"holes"`
}

func NewService(db *gorm.DB, fin *finance.Service, notifier Notifier) *Service {
	return &Service{db: db, finance: fin, notifier: notifier}
}

// CreateRound prices the round with the active configuration for its field
// size. The flat values stored here are the only ones settlement ever reads.
func (s *Service) CreateRound(ctx context.Context, params CreateParams) (*model.Round, error) {
	numPlayers, err := checkTeams(params.Teams)
	if err != nil {
		return nil, err
	}

	cfg, err := s.finance.Active(ctx)
	if err != nil {
		return nil, err
	}
	totalPot, skin, cth, err := finance.FlatValues(cfg, numPlayers)
	if err != nil {
		return nil, err
	}

	playedOn := params.PlayedOn
	if playedOn.IsZero() {
		playedOn = time.Now()
	}
	round := model.Round{
		CourseName:       strings.TrimSpace(params.CourseName),
		PlayedOn:         playedOn,
		Status:           model.RoundStatusInProgress,
		ConfigurationID:  cfg.ID,
		NumPlayers:       numPlayers,
		BuyInAmount:      cfg.BuyInAmount,
		TotalPot:         totalPot,
		PerHoleSkinValue: skin,
		CTHPayoutAmount:  cth,
		CreatedBy:        params.CreatedBy,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&round).Error; err != nil {
			return err
		}
		for i, tp := range params.Teams {
			name := strings.TrimSpace(tp.Name)
			if name == "" {
				name = fmt.Sprintf("Team %d", i+1)
			}
			team := model.Team{RoundID: round.ID, Name: name, Position: i}
			if err := tx.Omit(clause.Associations).Create(&team).Error; err != nil {
				return err
			}
			for pos, golferID := range tp.GolferIDs {
				team.Members = append(team.Members, model.TeamMember{
					RoundID:  round.ID,
					TeamID:   team.ID,
					GolferID: golferID,
					Position: pos,
				})
			}
			if err := tx.Create(&team.Members).Error; err != nil {
				return err
			}
			round.Teams = append(round.Teams, team)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("round created",
		zap.Int64("roundID", round.ID),
		zap.Int64("configID", cfg.ID),
		zap.Int("players", numPlayers),
		logger.Money("totalPot", totalPot),
		logger.Money("skinValue", skin),
		logger.Money("cthPayout", cth),
	)
	return &round, nil
}

// RecordScores upserts hole scores for one team while the round is in progress.
func (s *Service) RecordScores(ctx context.Context, roundID, teamID int64, holes []HoleStroke) error {
	if len(holes) == 0 {
		return fmt.Errorf("%w: no holes given", appErr.ErrInvalidScore)
	}
	seen := make(map[int]struct{}, len(holes))
	for _, h := range holes {
		if h.Hole < 1 || h.Hole > model.HolesPerRound {
			return fmt.Errorf("%w: hole %d out of range", appErr.ErrInvalidScore, h.Hole)
		}
		if h.Strokes <= 0 {
			return fmt.Errorf("%w: hole %d strokes must be positive", appErr.ErrInvalidScore, h.Hole)
		}
		if _, dup := seen[h.Hole]; dup {
			return fmt.Errorf("%w: hole %d given twice", appErr.ErrInvalidScore, h.Hole)
		}
		seen[h.Hole] = struct{}{}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var round model.Round
		if err := tx.Select("id", "status").First(&round, roundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrRoundNotFound
			}
			return err
		}
		if round.Status != model.RoundStatusInProgress {
			return appErr.ErrRoundNotInProgress
		}

		var n int64
		if err := tx.Model(&model.Team{}).Where("id = ? AND round_id = ?", teamID, roundID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return appErr.ErrTeamNotFound
		}

		now := time.Now()
		rows := make([]model.HoleScore, 0, len(holes))
		for _, h := range holes {
			rows = append(rows, model.HoleScore{
				RoundID:    roundID,
				TeamID:     teamID,
				HoleNumber: h.Hole,
				Strokes:    h.Strokes,
				UpdatedAt:  now,
			})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "round_id"}, {Name: "team_id"}, {Name: "hole_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"strokes", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.Publish(roundID, EventScoresUpdated, ScoresUpdate{RoundID: roundID, TeamID: teamID, Holes: holes})
	}
	return nil
}

// CompleteRound closes scoring once every team has a full card.
func (s *Service) CompleteRound(ctx context.Context, roundID int64) (*model.Round, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var round model.Round
		if err := tx.Preload("Teams").First(&round, roundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrRoundNotFound
			}
			return err
		}
		if round.Status != model.RoundStatusInProgress {
			return appErr.ErrRoundNotInProgress
		}

		type teamCount struct {
			TeamID int64
			Holes  int64
		}
		var counts []teamCount
		if err := tx.Model(&model.HoleScore{}).
			Select("team_id, COUNT(*) AS holes").
			Where("round_id = ?", roundID).
			Group("team_id").
			Scan(&counts).Error; err != nil {
			return err
		}
		byTeam := make(map[int64]int64, len(counts))
		for _, c := range counts {
			byTeam[c.TeamID] = c.Holes
		}
		for _, team := range round.Teams {
			if byTeam[team.ID] != model.HolesPerRound {
				return fmt.Errorf("%w: team %q has %d of %d holes", appErr.ErrScoresIncomplete, team.Name, byTeam[team.ID], model.HolesPerRound)
			}
		}

		result := tx.Model(&model.Round{}).
			Where("id = ? AND status = ?", roundID, model.RoundStatusInProgress).
			Updates(map[string]interface{}{
				"status":       model.RoundStatusCompleted,
				"completed_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return appErr.ErrRoundNotInProgress
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	round, err := s.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("round completed", zap.Int64("roundID", roundID))
	if s.notifier != nil {
		s.notifier.Publish(roundID, EventRoundCompleted, round)
	}
	return round, nil
}

func (s *Service) GetRound(ctx context.Context, roundID int64) (*model.Round, error) {
	var round model.Round
	err := s.db.WithContext(ctx).
		Preload("Teams", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Teams.Members", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Scores", func(db *gorm.DB) *gorm.DB { return db.Order("team_id ASC, hole_number ASC") }).
		First(&round, roundID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

func checkTeams(teams []TeamParams) (int, error) {
	if len(teams) == 0 {
		return 0, fmt.Errorf("%w: at least one team is required", appErr.ErrInvalidTeams)
	}
	seen := make(map[int64]struct{})
	total := 0
	for i, t := range teams {
		if len(t.GolferIDs) < model.MinTeamSize || len(t.GolferIDs) > model.MaxTeamSize {
			return 0, fmt.Errorf("%w: team %d has %d golfers, want %d-%d",
				appErr.ErrInvalidTeams, i+1, len(t.GolferIDs), model.MinTeamSize, model.MaxTeamSize)
		}
		for _, id := range t.GolferIDs {
			if id <= 0 {
				return 0, fmt.Errorf("%w: invalid golfer id %d", appErr.ErrInvalidTeams, id)
			}
			if _, dup := seen[id]; dup {
				return 0, fmt.Errorf("%w: golfer %d appears on more than one team", appErr.ErrInvalidTeams, id)
			}
			seen[id] = struct{}{}
		}
		total += len(t.GolferIDs)
	}
	if total < model.MinPlayers || total > model.MaxPlayers {
		return 0, fmt.Errorf("%w: %d players, want %d-%d", appErr.ErrInvalidPlayerCount, total, model.MinPlayers, model.MaxPlayers)
	}
	return total, nil
}
