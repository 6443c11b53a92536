package main

import (
	"fieldline/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; environment overrides stay optional.
	_ = godotenv.Load()

	cmd.Execute()
}
