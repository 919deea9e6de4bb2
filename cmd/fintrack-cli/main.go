package main

import (
	"os"

	"github.com/joho/godotenv"

	"fintrack/internal/cli"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
