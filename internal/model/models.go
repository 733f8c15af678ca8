package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	HolesPerRound = 18
	MinPlayers    = 6
	MaxPlayers    = 30
	MinTeamSize   = 2
	MaxTeamSize   = 3
)

const (
	RoundStatusInProgress = "in_progress"
	RoundStatusCompleted  = "completed"
	RoundStatusFinalized  = "finalized"
)

// 1. Organizers

type Organizer struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// 2. Financial configuration. Rows are never updated except for the Active flag.

type FinancialConfiguration struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyInAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"buyInAmount"`
	SkinValueFormula string          `gorm:"size:255;not null" json:"skinValueFormula"`
	CTHPayoutFormula string          `gorm:"size:255;not null" json:"cthPayoutFormula"`
	Validated        bool            `gorm:"not null;default:false" json:"validated"`
	Active           bool            `gorm:"not null;default:false;index" json:"active"`
	CreatedBy        int64           `json:"createdBy"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// 3. Round, teams, scorecard

type Round struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseName          string          `gorm:"size:128" json:"courseName"`
	PlayedOn            time.Time       `json:"playedOn"`
	Status              string          `gorm:"size:16;not null;index" json:"status"`
	ConfigurationID     int64           `json:"configurationId"`
	NumPlayers          int             `json:"numPlayers"`
	BuyInAmount         decimal.Decimal `gorm:"type:numeric(12,2)" json:"buyInAmount"`
	TotalPot            decimal.Decimal `gorm:"type:numeric(12,2)" json:"totalPot"`
	PerHoleSkinValue    decimal.Decimal `gorm:"type:numeric(12,2)" json:"perHoleSkinValue"`
	CTHPayoutAmount     decimal.Decimal `gorm:"type:numeric(12,2)" json:"cthPayoutAmount"`
	CTHWinnerGolferID   *int64          `json:"cthWinnerGolferId,omitempty"`
	OverallWinnerTeamID *int64          `json:"overallWinnerTeamId,omitempty"`
	CreatedBy           int64           `json:"createdBy"`
	CreatedAt           time.Time       `json:"createdAt"`
	CompletedAt         *time.Time      `json:"completedAt,omitempty"`
	FinalizedAt         *time.Time      `json:"finalizedAt,omitempty"`
	FinalizedBy         *int64          `json:"finalizedBy,omitempty"`

	Teams  []Team      `gorm:"foreignKey:RoundID" json:"teams,omitempty"`
	Scores []HoleScore `gorm:"foreignKey:RoundID" json:"scores,omitempty"`
}

type Team struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	RoundID   int64        `gorm:"index;not null" json:"roundId"`
	Name      string       `gorm:"size:64" json:"name"`
	Position  int          `json:"position"`
	Members   []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

type TeamMember struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoundID  int64 `gorm:"uniqueIndex:idx_round_golfer;not null" json:"roundId"`
	TeamID   int64 `gorm:"index;not null" json:"teamId"`
	GolferID int64 `gorm:"uniqueIndex:idx_round_golfer;not null" json:"golferId"`
	Position int   `json:"position"`
}

// HoleScore also carries the per-hole skin award marker written at finalization.
type HoleScore struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RoundID      int64           `gorm:"uniqueIndex:idx_round_team_hole;not null" json:"roundId"`
	TeamID       int64           `gorm:"uniqueIndex:idx_round_team_hole;not null" json:"teamId"`
	HoleNumber   int             `gorm:"uniqueIndex:idx_round_team_hole;not null" json:"holeNumber"`
	Strokes      int             `gorm:"not null" json:"strokes"`
	IsSkinWinner bool            `gorm:"not null;default:false" json:"isSkinWinner"`
	SkinAmount   decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"skinAmount"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// 4. Payout ledger. One row per finalized round, never updated.

type SettlementLedger struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Ref                string          `gorm:"size:36;uniqueIndex;not null" json:"ref"`
	RoundID            int64           `gorm:"uniqueIndex;not null" json:"roundId"`
	NumPlayers         int             `json:"numPlayers"`
	TotalPot           decimal.Decimal `gorm:"type:numeric(12,2)" json:"totalPot"`
	TotalSkinsPaid     decimal.Decimal `gorm:"type:numeric(12,2)" json:"totalSkinsPaid"`
	FinalRollover      decimal.Decimal `gorm:"type:numeric(12,2)" json:"finalRollover"`
	CTHPaid            decimal.Decimal `gorm:"type:numeric(12,2)" json:"cthPaid"`
	TotalOverallPaid   decimal.Decimal `gorm:"type:numeric(12,2)" json:"totalOverallPaid"`
	Balanced           bool            `json:"balanced"`
	Delta              decimal.Decimal `gorm:"type:numeric(12,2)" json:"delta"`
	ReconciliationNote string          `gorm:"type:text" json:"reconciliationNote"`
	ResultJSON         datatypes.JSON  `json:"result"`
	FinalizedBy        int64           `json:"finalizedBy"`
	CreatedAt          time.Time       `json:"createdAt"`

	Payouts []PlayerPayout `gorm:"foreignKey:LedgerID" json:"payouts,omitempty"`
}

type PlayerPayout struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	LedgerID        int64           `gorm:"index;not null" json:"ledgerId"`
	RoundID         int64           `gorm:"index;not null" json:"roundId"`
	GolferID        int64           `gorm:"not null" json:"golferId"`
	TeamID          int64           `gorm:"not null" json:"teamId"`
	SkinsWinnings   decimal.Decimal `gorm:"type:numeric(12,2)" json:"skinsWinnings"`
	CTHWinnings     decimal.Decimal `gorm:"type:numeric(12,2)" json:"cthWinnings"`
	OverallWinnings decimal.Decimal `gorm:"type:numeric(12,2)" json:"overallWinnings"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2)" json:"total"`
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Organizer{},
		&FinancialConfiguration{},
		&Round{},
		&Team{},
		&TeamMember{},
		&HoleScore{},
		&SettlementLedger{},
		&PlayerPayout{},
	}
}
