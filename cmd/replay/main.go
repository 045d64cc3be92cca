package main

import (
	"log"

	"github.com/relabs-tech/loadcell_computer/internal/app"
	"github.com/relabs-tech/loadcell_computer/internal/config"
)

func main() {
	log.Println("starting loadcell replay producer (synthetic frames)")

	// Load configuration
	if err := config.InitGlobal("loadcell_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunReplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
