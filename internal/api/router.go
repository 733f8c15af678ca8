package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"skins-service/internal/middleware"
	"skins-service/internal/service"
	"skins-service/internal/service/finance"
	"skins-service/internal/service/round"
	"skins-service/internal/service/settlement"
	"skins-service/internal/ws"
	appErr "skins-service/pkg/errors"
	"skins-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Hub, services.Round)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/skins/v1")
	{
		v1.GET("/rounds/:id", handler.GetRound)
		v1.GET("/rounds/:id/settlement", handler.GetSettlement)
	}

	orgGroup := v1.Group("/organizer")
	{
		orgGroup.POST("/auth/login", handler.OrganizerLogin)

		protected := orgGroup.Group("/")
		protected.Use(middleware.OrganizerAuthRequired())
		{
			protected.GET("/configs", handler.ListConfigs)
			protected.POST("/configs", handler.CreateConfig)
			protected.POST("/configs/validate", handler.ValidateConfig)
			protected.GET("/configs/active", handler.ActiveConfig)
			protected.GET("/configs/:id", handler.GetConfig)
			protected.PUT("/configs/:id/activate", handler.ActivateConfig)
			protected.GET("/configs/:id/preview", handler.PreviewConfig)

			protected.POST("/rounds", handler.CreateRound)
			protected.PUT("/rounds/:id/teams/:teamId/scores", handler.RecordScores)
			protected.POST("/rounds/:id/complete", handler.CompleteRound)
			protected.POST("/rounds/:id/settlement/preview", handler.PreviewSettlement)
			protected.POST("/rounds/:id/finalize", handler.FinalizeRound)
		}
	}

	r.GET("/ws/rounds/:id", wsHandler.HandleRoundWS)
}

type loginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type configBody struct {
	BuyInAmount      decimal.Decimal `json:"buyInAmount"`
	SkinValueFormula string          `json:"skinValueFormula"`
	CTHPayoutFormula string          `json:"cthPayoutFormula"`
}

type teamBody struct {
	Name      string  `json:"name"`
	GolferIDs []int64 `json:"golferIds" binding:"required"`
}

type createRoundBody struct {
	CourseName string     `json:"courseName"`
	PlayedOn   *string    `json:"playedOn"`
	Teams      []teamBody `json:"teams" binding:"required,min=1"`
}

func (b createRoundBody) toParams(organizerID int64) (round.CreateParams, error) {
	params := round.CreateParams{
		CourseName: strings.TrimSpace(b.CourseName),
		CreatedBy:  organizerID,
	}
	if b.PlayedOn != nil && strings.TrimSpace(*b.PlayedOn) != "" {
		ts, err := parseTimeWithLayouts(strings.TrimSpace(*b.PlayedOn))
		if err != nil {
			return round.CreateParams{}, err
		}
		params.PlayedOn = *ts
	}
	for _, t := range b.Teams {
		params.Teams = append(params.Teams, round.TeamParams{Name: t.Name, GolferIDs: t.GolferIDs})
	}
	return params, nil
}

type scoresBody struct {
	Holes []round.HoleStroke `json:"holes" binding:"required,min=1"`
}

type finalizeBody struct {
	CTHWinnerGolferID int64  `json:"cthWinnerGolferId"`
	OverrideTeamID    *int64 `json:"overrideTeamId"`
}

func (h *Handler) OrganizerLogin(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Organizer.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case appErr.ErrOrganizerNotFound, appErr.ErrInvalidOrganizerPassword:
			status = http.StatusUnauthorized
		case appErr.ErrOrganizerDisabled:
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) ListConfigs(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Finance.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) CreateConfig(c *gin.Context) {
	var body configBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.services.Finance.Create(c.Request.Context(), finance.CreateParams{
		BuyInAmount:      body.BuyInAmount,
		SkinValueFormula: body.SkinValueFormula,
		CTHPayoutFormula: body.CTHPayoutFormula,
		CreatedBy:        middleware.OrganizerID(c),
	})
	if err != nil {
		var verr *finance.ValidationError
		if errors.As(err, &verr) {
			response.ErrorWithData(c, http.StatusUnprocessableEntity, gin.H{
				"configuration": cfg,
				"issues":        verr.Issues,
			}, appErr.ErrConfigInvalid.Error())
			return
		}
		writeError(c, err)
		return
	}
	response.Success(c, cfg)
}

// ValidateConfig is a dry run; nothing is stored.
func (h *Handler) ValidateConfig(c *gin.Context) {
	var body configBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	rows, issues := finance.Simulate(body.BuyInAmount, body.SkinValueFormula, body.CTHPayoutFormula)
	if issues == nil {
		issues = []finance.ValidationIssue{}
	}
	response.Success(c, gin.H{
		"valid":  len(issues) == 0,
		"issues": issues,
		"rows":   rows,
	})
}

func (h *Handler) ActiveConfig(c *gin.Context) {
	cfg, err := h.services.Finance.Active(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cfg)
}

func (h *Handler) GetConfig(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	cfg, err := h.services.Finance.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cfg)
}

func (h *Handler) ActivateConfig(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	cfg, err := h.services.Finance.Activate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cfg)
}

func (h *Handler) PreviewConfig(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	players, err := parsePositiveIntQuery(c, "players", 0)
	if err != nil || players == 0 {
		response.Error(c, http.StatusBadRequest, "invalid players")
		return
	}

	preview, err := h.services.Finance.Preview(c.Request.Context(), id, players)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, preview)
}

func (h *Handler) CreateRound(c *gin.Context) {
	var body createRoundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	params, err := body.toParams(middleware.OrganizerID(c))
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	rnd, err := h.services.Round.CreateRound(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, rnd)
}

func (h *Handler) RecordScores(c *gin.Context) {
	roundID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	teamID, ok := parseIDParam(c, "teamId")
	if !ok {
		return
	}
	var body scoresBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.services.Round.RecordScores(c.Request.Context(), roundID, teamID, body.Holes); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "scores recorded")
}

func (h *Handler) CompleteRound(c *gin.Context) {
	roundID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rnd, err := h.services.Round.CompleteRound(c.Request.Context(), roundID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, rnd)
}

func (h *Handler) PreviewSettlement(c *gin.Context) {
	req, ok := bindFinalize(c)
	if !ok {
		return
	}
	res, err := h.services.Settlement.Preview(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *Handler) FinalizeRound(c *gin.Context) {
	req, ok := bindFinalize(c)
	if !ok {
		return
	}
	out, err := h.services.Settlement.FinalizeRound(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, out)
}

func (h *Handler) GetRound(c *gin.Context) {
	roundID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rnd, err := h.services.Round.GetRound(c.Request.Context(), roundID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, rnd)
}

func (h *Handler) GetSettlement(c *gin.Context) {
	roundID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ledger, err := h.services.Settlement.GetLedger(c.Request.Context(), roundID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, ledger)
}

func bindFinalize(c *gin.Context) (settlement.FinalizeRequest, bool) {
	roundID, ok := parseIDParam(c, "id")
	if !ok {
		return settlement.FinalizeRequest{}, false
	}
	var body finalizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return settlement.FinalizeRequest{}, false
	}
	return settlement.FinalizeRequest{
		RoundID:           roundID,
		CTHWinnerGolferID: body.CTHWinnerGolferID,
		OverrideTeamID:    body.OverrideTeamID,
		FinalizedBy:       middleware.OrganizerID(c),
	}, true
}

func writeError(c *gin.Context, err error) {
	var verr *finance.ValidationError
	var tie *settlement.TieError
	switch {
	case errors.As(err, &tie):
		response.ErrorWithData(c, http.StatusConflict, gin.H{
			"tiedTeamIds": tie.TeamIDs,
			"strokes":     tie.Strokes,
		}, err.Error())
	case errors.As(err, &verr):
		response.ErrorWithData(c, http.StatusUnprocessableEntity, gin.H{"issues": verr.Issues}, err.Error())
	case errors.Is(err, appErr.ErrConfigNotFound),
		errors.Is(err, appErr.ErrNoActiveConfig),
		errors.Is(err, appErr.ErrRoundNotFound),
		errors.Is(err, appErr.ErrTeamNotFound),
		errors.Is(err, appErr.ErrLedgerNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrConfigNotValidated),
		errors.Is(err, appErr.ErrInvalidTeams),
		errors.Is(err, appErr.ErrInvalidScore),
		errors.Is(err, appErr.ErrInvalidPlayerCount):
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, appErr.ErrSettlementNotReady),
		errors.Is(err, appErr.ErrAlreadyFinalized),
		errors.Is(err, appErr.ErrSettlementInProgress),
		errors.Is(err, appErr.ErrRoundNotInProgress),
		errors.Is(err, appErr.ErrScoresIncomplete):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrInvalidOverride):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func parseIDParam(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", key))
		return 0, false
	}
	return id, true
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func parseTimeWithLayouts(value string) (*time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid playedOn, expected RFC3339 or '2006-01-02'")
}
