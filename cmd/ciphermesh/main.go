package main

import (
	"os"

	"github.com/joho/godotenv"

	"ciphermesh/cmd/ciphermesh/commands"
)

func main() {
	_ = godotenv.Load() // optional; missing .env is not an error

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
