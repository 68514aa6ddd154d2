// Command hrdesk is the HR policy assistant CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/hrdesk-labs/hrdesk/internal/adapters/driving/cli"
)

func main() {
	// A missing .env is fine; environment variables win regardless.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
