package main

import (
	"fmt"
	"log"

	"github.com/lyrabot/lyra/internal/app"
)

// set at build time via -ldflags
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	fmt.Printf("Lyra %s (built %s)\n", version, buildTime)

	application, err := app.New()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Start(); err != nil {
		application.Logger.WithError(err).Fatal("Application failed")
	}

	application.WaitForShutdown()
}
