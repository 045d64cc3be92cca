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
	log.Println("starting loadcell bridge (BLE -> MQTT + websocket)")

	// Load configuration
	if err := config.InitGlobal("loadcell_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunBridge(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
