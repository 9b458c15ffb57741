// @title Wave Messenger
// @version 0.1
// @description Phone-verified team chat backend.

// @host localhost:8080
// @BasePath /
// @query.collection.format multi
// @schemes http

package main

import (
	"log"

	_ "wave/docs"
	"wave/internal/app"
	"wave/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	app.Run(cfg)
}
