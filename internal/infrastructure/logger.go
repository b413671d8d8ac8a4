package infrastructure

import (
	"log"

	"go.uber.org/zap"
)

var (
	Logger *zap.Logger
)

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		// no logger to fall back on this early in startup
		log.Fatalf("failed to build logger: %v", err)
	}
	Logger = logger
	Logger.Info("infrastructure initialized")
}
