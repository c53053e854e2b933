package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"lms/config"
	"lms/models"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb establishes the database connection and prepares the schema
func ConnectDb() {
	var dialector gorm.Dialector
	if config.AppConfig.DBDriver == "postgres" {
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			config.AppConfig.DBHost,
			config.AppConfig.DBUser,
			config.AppConfig.DBPassword,
			config.AppConfig.DBName,
			config.AppConfig.DBPort,
		)
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(config.AppConfig.DBName)
	}

	// TranslateError maps driver duplicate-key failures to gorm.ErrDuplicatedKey,
	// which the services rely on for uniqueness races
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(config.AppConfig.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.AppConfig.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(0) // No timeout

	runMigrations(db)
	seedBadgeTypes(db)

	// Save database instance globally
	Database = DbInstance{Db: db}
}

// runMigrations performs database migrations
func runMigrations(db *gorm.DB) {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.Module{},
		&models.Course{},
		&models.Chapter{},
		&models.ChapterProgress{},
		&models.CourseProgress{},
		&models.BadgeType{},
		&models.UserBadge{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully.")
}

// seedBadgeTypes inserts the built-in badge catalog if rows are missing
func seedBadgeTypes(db *gorm.DB) {
	for _, badge := range models.DefaultBadgeTypes() {
		if err := db.FirstOrCreate(&badge, "id = ?", badge.ID).Error; err != nil {
			log.Printf("Failed to seed badge type %q: %v", badge.Name, err)
		}
	}
}
