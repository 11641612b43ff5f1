package main

import (
	"newsrisk/cmd/handlers"
	"newsrisk/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
