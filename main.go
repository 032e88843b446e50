package main

import (
	"calsync-api/core/logger"
	"calsync-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
