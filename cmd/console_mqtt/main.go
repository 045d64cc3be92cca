// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/loadcell_computer/internal/app"
	"github.com/relabs-tech/loadcell_computer/internal/config"
)

func main() {
	log.Println("starting loadcell MQTT console subscriber")

	// Load configuration
	if err := config.InitGlobal("loadcell_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
