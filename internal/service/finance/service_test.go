package finance_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"skins-service/internal/model"
	"skins-service/internal/service/finance"
	appErr "skins-service/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*gorm.DB, *finance.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.FinancialConfiguration{}); err != nil {
		t.Fatalf("failed to migrate configurations: %v", err)
	}
	return db, finance.NewService(db)
}

func TestCreateStoresValidatedFlag(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	cfg, err := svc.Create(ctx, finance.CreateParams{BuyInAmount: d("20"), SkinValueFormula: " 2 ", CTHPayoutFormula: "6", CreatedBy: 1})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !cfg.Validated || cfg.SkinValueFormula != "2" {
		t.Fatalf("unexpected configuration %+v", cfg)
	}

	bad, err := svc.Create(ctx, finance.CreateParams{BuyInAmount: d("10"), SkinValueFormula: "roundPlayers * 100", CTHPayoutFormula: "5"})
	if !errors.Is(err, appErr.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
	var verr *finance.ValidationError
	if !errors.As(err, &verr) || len(verr.Issues) != 25 {
		t.Fatalf("expected 25 issues, got %v", err)
	}
	if bad == nil || bad.ID == 0 || bad.Validated {
		t.Fatalf("expected stored unvalidated configuration, got %+v", bad)
	}
}

func TestActivateKeepsSingleActive(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)

	if _, err := svc.Active(ctx); !errors.Is(err, appErr.ErrNoActiveConfig) {
		t.Fatalf("expected ErrNoActiveConfig, got %v", err)
	}

	first, _ := svc.Create(ctx, finance.CreateParams{BuyInAmount: d("20"), SkinValueFormula: "2", CTHPayoutFormula: "6"})
	second, _ := svc.Create(ctx, finance.CreateParams{BuyInAmount: d("25"), SkinValueFormula: "roundPlayers / 3", CTHPayoutFormula: "10"})

	if _, err := svc.Activate(ctx, first.ID); err != nil {
		t.Fatalf("activate first failed: %v", err)
	}
	if _, err := svc.Activate(ctx, second.ID); err != nil {
		t.Fatalf("activate second failed: %v", err)
	}

	var active int64
	if err := db.Model(&model.FinancialConfiguration{}).Where("active = ?", true).Count(&active).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected one active configuration, got %d", active)
	}

	cur, err := svc.Active(ctx)
	if err != nil {
		t.Fatalf("active failed: %v", err)
	}
	if cur.ID != second.ID {
		t.Fatalf("expected %d active, got %d", second.ID, cur.ID)
	}
}

func TestActivateRejectsUnvalidated(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	bad, _ := svc.Create(ctx, finance.CreateParams{BuyInAmount: d("10"), SkinValueFormula: "8", CTHPayoutFormula: "6"})
	if _, err := svc.Activate(ctx, bad.ID); !errors.Is(err, appErr.ErrConfigNotValidated) {
		t.Fatalf("expected ErrConfigNotValidated, got %v", err)
	}
	if _, err := svc.Activate(ctx, 999); !errors.Is(err, appErr.ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, finance.CreateParams{BuyInAmount: d("20"), SkinValueFormula: "2", CTHPayoutFormula: "6"}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	res, err := svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if res.Total != 3 || len(res.Items) != 1 {
		t.Fatalf("expected total 3 and one item on page 2, got %d/%d", res.Total, len(res.Items))
	}
}

func TestPreviewSingleCount(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	cfg, _ := svc.Create(ctx, finance.CreateParams{BuyInAmount: d("20"), SkinValueFormula: "2", CTHPayoutFormula: "6"})

	p, err := svc.Preview(ctx, cfg.ID, 6)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !p.TotalPot.Equal(d("120")) || !p.TotalPotentialSkins.Equal(d("36")) || !p.Remaining.Equal(d("78")) {
		t.Fatalf("unexpected preview %+v", p)
	}

	if _, err := svc.Preview(ctx, cfg.ID, 5); !errors.Is(err, appErr.ErrInvalidPlayerCount) {
		t.Fatalf("expected ErrInvalidPlayerCount, got %v", err)
	}
}

func TestFlatValuesRoundToCents(t *testing.T) {
	cfg := &model.FinancialConfiguration{
		BuyInAmount:      d("20"),
		SkinValueFormula: "10 / 3",
		CTHPayoutFormula: "roundPlayers / 8",
		Validated:        true,
	}

	pot, skin, cth, err := finance.FlatValues(cfg, 6)
	if err != nil {
		t.Fatalf("flat values failed: %v", err)
	}
	if !pot.Equal(d("120")) || !skin.Equal(d("3.33")) || !cth.Equal(d("0.75")) {
		t.Fatalf("unexpected flat values pot=%s skin=%s cth=%s", pot, skin, cth)
	}

	cfg.Validated = false
	if _, _, _, err := finance.FlatValues(cfg, 6); !errors.Is(err, appErr.ErrConfigNotValidated) {
		t.Fatalf("expected ErrConfigNotValidated, got %v", err)
	}
}

func TestFlatValuesNeverPricesNegativeRemainder(t *testing.T) {
	cfg := &model.FinancialConfiguration{
		BuyInAmount:      d("20"),
		SkinValueFormula: "120 / 18.0045 + (roundPlayers - 6) * 0",
		CTHPayoutFormula: "0",
		Validated:        true,
	}

	if _, _, _, err := finance.FlatValues(cfg, 6); !errors.Is(err, appErr.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for 6 players, got %v", err)
	}

	pot, skin, _, err := finance.FlatValues(cfg, 7)
	if err != nil {
		t.Fatalf("flat values for 7 players failed: %v", err)
	}
	if remaining := pot.Sub(skin.Mul(d("18"))); !remaining.IsPositive() {
		t.Fatalf("expected positive remainder, got %s", remaining)
	}
}
