package main

import (
	"os"

	"trendpulse/cmd/handlers"
	"trendpulse/internal/logger"
)

func main() {
	logger.Init()
	if err := handlers.Execute(); err != nil {
		os.Exit(1)
	}
}
