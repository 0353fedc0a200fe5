// file: main.go
// version: 1.0.0
// guid: 2a3b4c5d-6e7f-8a9b-0c1d-2e3f4a5b6c7d

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/gofleetadvisor/fleetdocs/cmd"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[DEBUG] no .env file loaded: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
