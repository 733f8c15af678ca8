package organizer

import (
	"context"
	"errors"
	"strings"
	"time"

	"skins-service/internal/config"
	"skins-service/internal/model"
	pkgAuth "skins-service/pkg/auth"
	appErr "skins-service/pkg/errors"
	"skins-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

type LoginResult struct {
	Token     string        `json:"token"`
	ExpireAt  time.Time     `json:"expireAt"`
	Organizer OrganizerInfo `json:"organizer"`
}

type OrganizerInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, appErr.ErrInvalidOrganizerPassword
	}

	var org model.Organizer
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrOrganizerNotFound
		}
		return nil, err
	}
	if !strings.EqualFold(org.Status, "active") {
		return nil, appErr.ErrOrganizerDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(org.PasswordHash), []byte(password)); err != nil {
		return nil, appErr.ErrInvalidOrganizerPassword
	}

	token, expireAt, err := pkgAuth.GenerateOrganizerToken(org.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).
		Model(&org).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"updated_at":    now,
		}).Error; err != nil {
		return nil, err
	}
	org.LastLoginAt = &now

	return &LoginResult{
		Token:     token,
		ExpireAt:  expireAt,
		Organizer: sanitizeOrganizer(org),
	}, nil
}

// EnsureDefaultOrganizer seeds the configured account on first start.
func (s *Service) EnsureDefaultOrganizer(ctx context.Context) error {
	cfg := config.GlobalConfig.Admin
	if cfg.DefaultUsername == "" || cfg.DefaultPassword == "" {
		logger.Log.Warn("default organizer credentials not configured; skipping bootstrap")
		return nil
	}

	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&model.Organizer{}).
		Where("username = ?", cfg.DefaultUsername).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	org := model.Organizer{
		Username:     cfg.DefaultUsername,
		PasswordHash: string(hash),
		DisplayName:  cfg.DefaultUsername,
		Status:       "active",
	}
	if err := s.db.WithContext(ctx).Create(&org).Error; err != nil {
		return err
	}
	logger.Log.Info("default organizer account created",
		zap.String("username", cfg.DefaultUsername))
	return nil
}

func sanitizeOrganizer(org model.Organizer) OrganizerInfo {
	return OrganizerInfo{
		ID:          org.ID,
		Username:    org.Username,
		DisplayName: org.DisplayName,
		Status:      org.Status,
		LastLoginAt: org.LastLoginAt,
		CreatedAt:   org.CreatedAt,
	}
}
