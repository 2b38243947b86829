package main

import (
	"presence-sync/core/logger"
	"presence-sync/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
