package repo

import (
	"log"
	"strings"

	"skins-service/internal/config"
	"skins-service/internal/model"
	"skins-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Dialector picks the gorm driver for database.driver.
func Dialector(driver, dsn string) (gorm.Dialector, bool) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql":
		return postgres.Open(dsn), true
	case "mysql":
		return mysql.Open(dsn), true
	case "sqlite", "sqlite3":
		return sqlite.Open(dsn), true
	default:
		return nil, false
	}
}

func InitDB() {
	conf := config.GlobalConfig.Database
	dialector, ok := Dialector(conf.Driver, conf.DSN)
	if !ok {
		logger.Log.Fatal("Unsupported database driver", zap.String("driver", conf.Driver))
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.String("driver", conf.Driver),
			zap.Error(err),
		)
	}

	if err := DB.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
