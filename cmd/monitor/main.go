package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"field-monitor/internal/agent"
	"field-monitor/internal/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Printf("load config: %v", err)
		os.Exit(2)
	}

	logger := agent.BuildLogger(cfg)
	a, err := agent.New(cfg, logger)
	if err != nil {
		logger.Error("monitor initialization failed", "error", err)
		if errors.Is(err, config.ErrInvalidConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		logger.Error("monitor run failed", "error", err)
		os.Exit(1)
	}
}
