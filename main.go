package main

import (
	"context"
	"log"

	"SeriesVideo-server/config"
	"SeriesVideo-server/models"
	"SeriesVideo-server/routers"
	"SeriesVideo-server/service"

	"github.com/joho/godotenv"
)

func main() {
	// Provider keys may come from .env during local development.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}
	config.InitConfig()
	log.Println("Server starting on port", config.AppConfig.Server.Port)

	models.InitDB()
	service.InitQueue()
	service.InitMinIO()
	service.InitProgress(context.Background())

	gen := service.BuildGenerator(config.AppConfig, service.Progress)
	processor := service.NewProcessor(models.GormDB, gen)
	processor.StartProcessor(config.AppConfig.Worker.Concurrency)

	r := routers.InitRouter()
	if err := r.Run(config.AppConfig.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
