package main

import (
	"os"

	"github.com/wonny/stockfinder/cmd/stockfinder/commands"
)

// main is the entry point for the stockfinder CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stockfinder [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
