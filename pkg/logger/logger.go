package logger

import (
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is a no-op until InitLogger runs so that services stay usable in tests.
var Log = zap.NewNop()

func InitLogger(mode string) {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.InitialFields = map[string]interface{}{"service": "skins"}

	built, err := config.Build()
	if err != nil {
		os.Exit(1)
	}
	Log = built
	zap.ReplaceGlobals(Log)
}

// Money renders a decimal amount as a string field so it survives JSON encoding exactly.
func Money(key string, v decimal.Decimal) zap.Field {
	return zap.String(key, v.StringFixed(2))
}
