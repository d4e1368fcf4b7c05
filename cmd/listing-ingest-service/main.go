package main

import (
	"flag"
	"listing-ingest-service/internal"
	"listing-ingest-service/internal/configs"
	"log"
)

func main() {
	envFile := flag.String("env", "", "path to .env file (default: ./.env)")
	flag.Parse()

	var envPaths []string
	if *envFile != "" {
		envPaths = append(envPaths, *envFile)
	}

	cfg, err := configs.LoadConfig(envPaths...)
	if err != nil {
		log.Fatalf("listing-ingest-service: config: %v", err)
	}

	app, err := internal.NewApp(cfg)
	if err != nil {
		log.Fatalf("listing-ingest-service: init: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("listing-ingest-service: %v", err)
	}
}
