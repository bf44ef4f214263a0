package main

import (
	"os"

	"rehearsal-hub/core/logger"
	"rehearsal-hub/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("Main:Run:Error", "error", err)
		os.Exit(1)
	}
}
