// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/orientation_bridge/internal/app"
	"github.com/relabs-tech/orientation_bridge/internal/config"
	"github.com/relabs-tech/orientation_bridge/internal/logging"
)

func main() {
	configPath := flag.String("config", "bridge_config.txt", "path to the KEY=VALUE config file")
	flag.Parse()

	log.Println("starting orientation relay")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if err := app.RunRelay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
