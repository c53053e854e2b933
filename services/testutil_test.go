package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lms/catalog"
	"lms/logger"
	"lms/models"
	"lms/stores"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Module{},
		&models.Course{},
		&models.Chapter{},
		&models.ChapterProgress{},
		&models.CourseProgress{},
		&models.BadgeType{},
		&models.UserBadge{},
	))
	return db
}

func newTestEngine(t *testing.T) (*ProgressEngine, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	reader := catalog.NewReader(db)
	progressStore := stores.NewProgressStore(db)
	badgeStore := stores.NewBadgeStore(db)
	evaluator := NewBadgeEvaluator(reader, progressStore, badgeStore, logger.NewNop())
	engine := NewProgressEngine(reader, progressStore, evaluator, logger.NewNop())
	return engine, db
}

func createModule(t *testing.T, db *gorm.DB) models.Module {
	t.Helper()

	module := models.Module{Title: "Module"}
	require.NoError(t, db.Create(&module).Error)
	return module
}

func createCourse(t *testing.T, db *gorm.DB, moduleID uint, status string) models.Course {
	t.Helper()

	course := models.Course{ModuleID: moduleID, Title: "Course", Status: status}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func createChapter(t *testing.T, db *gorm.DB, courseID uint, published bool) models.Chapter {
	t.Helper()

	chapter := models.Chapter{CourseID: courseID, Title: "Chapter", IsPublished: published}
	require.NoError(t, db.Create(&chapter).Error)
	return chapter
}

func createChapters(t *testing.T, db *gorm.DB, courseID uint, published int) []models.Chapter {
	t.Helper()

	chapters := make([]models.Chapter, 0, published)
	for i := 0; i < published; i++ {
		chapters = append(chapters, createChapter(t, db, courseID, true))
	}
	return chapters
}

func countBadges(t *testing.T, db *gorm.DB, userID, badgeTypeID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_type_id = ?", userID, badgeTypeID).
		Count(&count).Error)
	return count
}
