package service

import (
	"context"
	"time"

	"skins-service/internal/config"
	"skins-service/internal/service/finance"
	"skins-service/internal/service/organizer"
	"skins-service/internal/service/round"
	"skins-service/internal/service/settlement"
	"skins-service/internal/ws"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Organizer  *organizer.Service
	Finance    *finance.Service
	Round      *round.Service
	Settlement *settlement.Service
	Hub        *ws.Hub
}

// NewContainer accepts a nil redis client.
func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	hub := ws.NewHub()
	fin := finance.NewService(db)

	var locker settlement.Locker
	if rdb != nil {
		ttl := 30 * time.Second
		if config.GlobalConfig != nil && config.GlobalConfig.Settlement.LockTTLSeconds > 0 {
			ttl = time.Duration(config.GlobalConfig.Settlement.LockTTLSeconds) * time.Second
		}
		locker = settlement.NewRedisLocker(rdb, ttl)
	}

	return &Container{
		Organizer:  organizer.NewService(db),
		Finance:    fin,
		Round:      round.NewService(db, fin, hub),
		Settlement: settlement.NewService(db, locker, hub),
		Hub:        hub,
	}
}

func (c *Container) Start(ctx context.Context) error {
	return c.Organizer.EnsureDefaultOrganizer(ctx)
}
