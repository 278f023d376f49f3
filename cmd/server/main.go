// Command server runs the account service.
package main

import (
	"account-service/internal/logger"
)

// Set at build time.
var version = "dev"

func main() {
	cmd := NewRootCmd()
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		logger.Fatal("command failed", map[string]any{"error": err.Error()})
	}
}
