package main

import (
	stdlog "log"

	"lms/config"
	"lms/database"
	"lms/logger"
	"lms/models"
)

func main() {
	// Load config and connect to database (runs migrations and the badge seed)
	config.LoadConfig()

	log, err := logger.New(config.AppConfig.LogMode)
	if err != nil {
		stdlog.Fatalf("Failed to build logger: %v", err)
	}
	defer log.Sync()

	database.ConnectDb()

	var count int64
	if err := database.Database.Db.Model(&models.BadgeType{}).Count(&count).Error; err != nil {
		log.Fatal("Failed to count badge types", "error", err)
	}

	log.Info("Badge catalog ready", "badge_types", count)
}
