package stores

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lms/models"
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

func createChapter(t *testing.T, db *gorm.DB, courseID uint, published bool) models.Chapter {
	t.Helper()

	chapter := models.Chapter{CourseID: courseID, Title: "Chapter", IsPublished: published}
	require.NoError(t, db.Create(&chapter).Error)
	return chapter
}
