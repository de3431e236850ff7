package main

import (
	"log"

	"skyvision/internal/app"
)

func main() {
	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
