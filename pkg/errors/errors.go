package errors

import "errors"

// Organizer
var (
	ErrOrganizerNotFound        = errors.New("organizer not found")
	ErrInvalidOrganizerPassword = errors.New("invalid organizer credentials")
	ErrOrganizerDisabled        = errors.New("organizer disabled")
	ErrUnauthorized             = errors.New("unauthorized")
)

// Financial configuration
var (
	ErrConfigNotFound     = errors.New("financial configuration not found")
	ErrConfigInvalid      = errors.New("financial configuration invalid")
	ErrConfigNotValidated = errors.New("financial configuration has not passed validation")
	ErrNoActiveConfig     = errors.New("no active financial configuration")
	ErrInvalidPlayerCount = errors.New("player count out of supported range")
)

// Round
var (
	ErrRoundNotFound      = errors.New("round not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrInvalidTeams       = errors.New("invalid team layout")
	ErrInvalidScore       = errors.New("invalid hole score")
	ErrRoundNotInProgress = errors.New("round is not in progress")
	ErrScoresIncomplete   = errors.New("round scorecard incomplete")
)

// Settlement
var (
	ErrSettlementNotReady   = errors.New("round not ready for settlement")
	ErrSettlementTie        = errors.New("overall winner tied, override required")
	ErrInvalidOverride      = errors.New("invalid overall winner override")
	ErrAlreadyFinalized     = errors.New("round already finalized")
	ErrSettlementInProgress = errors.New("settlement already in progress")
	ErrLedgerNotFound       = errors.New("settlement ledger not found")
)
