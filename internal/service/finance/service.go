package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skins-service/internal/model"
	appErr "skins-service/pkg/errors"
	"skins-service/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

type ListResult struct {
	Items []model.FinancialConfiguration
	Total int64
}

type CreateParams struct {
	BuyInAmount      decimal.Decimal
	SkinValueFormula string
	CTHPayoutFormula string
	CreatedBy        int64
}

// Preview is the money layout for one player count.
type Preview struct {
	ConfigurationID int64 `json:"configurationId"`
	SimulationRow
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create stores the configuration with its validation outcome. An invalid
// configuration is still stored, and the issues come back as *ValidationError.
func (s *Service) Create(ctx context.Context, params CreateParams) (*model.FinancialConfiguration, error) {
	issues := Validate(params.BuyInAmount, params.SkinValueFormula, params.CTHPayoutFormula)

	cfg := model.FinancialConfiguration{
		BuyInAmount:      params.BuyInAmount,
		SkinValueFormula: strings.TrimSpace(params.SkinValueFormula),
		CTHPayoutFormula: strings.TrimSpace(params.CTHPayoutFormula),
		Validated:        len(issues) == 0,
		CreatedBy:        params.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(&cfg).Error; err != nil {
		return nil, err
	}

	if len(issues) > 0 {
		logger.Log.Info("financial configuration failed validation",
			zap.Int64("configID", cfg.ID),
			zap.Int("issues", len(issues)),
		)
		return &cfg, &ValidationError{Issues: issues}
	}
	return &cfg, nil
}

func (s *Service) List(ctx context.Context, page, size int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&model.FinancialConfiguration{}).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.FinancialConfiguration
	if total > 0 {
		offset := (page - 1) * size
		if err := s.db.WithContext(ctx).
			Model(&model.FinancialConfiguration{}).
			Order("id DESC").
			Limit(size).
			Offset(offset).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}

	return &ListResult{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.FinancialConfiguration, error) {
	var cfg model.FinancialConfiguration
	if err := s.db.WithContext(ctx).First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// Active returns the configuration new rounds are priced with.
func (s *Service) Active(ctx context.Context) (*model.FinancialConfiguration, error) {
	var cfg model.FinancialConfiguration
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id DESC").
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrNoActiveConfig
		}
		return nil, err
	}
	return &cfg, nil
}

// Activate makes id the single active configuration. Rounds already created
// keep the flat values they were priced with.
func (s *Service) Activate(ctx context.Context, id int64) (*model.FinancialConfiguration, error) {
	var cfg model.FinancialConfiguration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cfg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrConfigNotFound
			}
			return err
		}
		if !cfg.Validated {
			return appErr.ErrConfigNotValidated
		}

		if err := tx.Model(&model.FinancialConfiguration{}).
			Where("active = ? AND id <> ?", true, id).
			Update("active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.FinancialConfiguration{}).
			Where("id = ?", id).
			Update("active", true).Error; err != nil {
			return err
		}
		cfg.Active = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("financial configuration activated", zap.Int64("configID", id))
	return &cfg, nil
}

// Preview evaluates a stored configuration for one player count.
func (s *Service) Preview(ctx context.Context, id int64, playerCount int) (*Preview, error) {
	if playerCount < model.MinPlayers || playerCount > model.MaxPlayers {
		return nil, fmt.Errorf("%w: %d", appErr.ErrInvalidPlayerCount, playerCount)
	}
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, issues := Simulate(cfg.BuyInAmount, cfg.SkinValueFormula, cfg.CTHPayoutFormula)
	for _, row := range rows {
		if row.PlayerCount == playerCount {
			return &Preview{ConfigurationID: cfg.ID, SimulationRow: row}, nil
		}
	}

	var forCount []ValidationIssue
	for _, issue := range issues {
		if issue.PlayerCount == 0 || issue.PlayerCount == playerCount {
			forCount = append(forCount, issue)
		}
	}
	return nil, &ValidationError{Issues: forCount}
}

// FlatValues evaluates cfg for the field size of a new round. Amounts are
// rounded half-to-even to cents.
func FlatValues(cfg *model.FinancialConfiguration, playerCount int) (totalPot, skin, cth decimal.Decimal, err error) {
	if !cfg.Validated {
		return decimal.Zero, decimal.Zero, decimal.Zero, appErr.ErrConfigNotValidated
	}
	if playerCount < model.MinPlayers || playerCount > model.MaxPlayers {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("%w: %d", appErr.ErrInvalidPlayerCount, playerCount)
	}

	rows, issues := Simulate(cfg.BuyInAmount, cfg.SkinValueFormula, cfg.CTHPayoutFormula)
	for _, row := range rows {
		if row.PlayerCount == playerCount && row.OK {
			return row.TotalPot.RoundBank(2), row.SkinValue.RoundBank(2), row.CTHPayout.RoundBank(2), nil
		}
	}
	if len(issues) == 0 {
		issues = []ValidationIssue{{PlayerCount: playerCount, Message: "configuration produced no value"}}
	}
	return decimal.Zero, decimal.Zero, decimal.Zero, &ValidationError{Issues: issues}
}
