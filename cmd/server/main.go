package main

import (
	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/internal/server"
	"github.com/OFFIS-RIT/findet/pkg/logger"
	"github.com/OFFIS-RIT/findet/pkg/logger/console"
)

func main() {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Prefix: "server"}))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Prefix: "server",
	}))

	server.Init(cfg)
}
