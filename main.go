package main

import (
	"log"

	"business-analyst/app"
	"business-analyst/config"
)

func main() {
	// Load config from .env file
	cfg := config.LoadFromEnv()
	for _, warning := range cfg.Validate() {
		log.Printf("⚠️  %s", warning)
	}

	// Create and start app
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
