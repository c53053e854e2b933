package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/catalog"
	"lms/logger"
	"lms/models"
	"lms/stores"
)

func completeCourse(t *testing.T, engine *ProgressEngine, userID uint, chapters []models.Chapter) {
	t.Helper()

	for _, chapter := range chapters {
		_, err := engine.CompleteChapter(userID, chapter.ID)
		require.NoError(t, err)
	}
}

func TestCourseCompletionBadge(t *testing.T) {
	engine, db := newTestEngine(t)
	module := createModule(t, db)
	course := createCourse(t, db, module.ID, "ACTIVE")
	chapters := createChapters(t, db, course.ID, 2)

	completeCourse(t, engine, testUser, chapters)

	var badge models.UserBadge
	require.NoError(t, db.Where("user_id = ? AND badge_type_id = ?", testUser, models.BadgeCourseCompletion).First(&badge).Error)
	assert.Equal(t, course.ID, badge.CourseID)
	assert.False(t, badge.EarnedAt.IsZero())
}

func TestCourseCompletionBadgeGrantedOnce(t *testing.T) {
	engine, db := newTestEngine(t)
	module := createModule(t, db)
	course := createCourse(t, db, module.ID, "ACTIVE")
	chapters := createChapters(t, db, course.ID, 2)

	completeCourse(t, engine, testUser, chapters)

	// re-trigger course completion by uncompleting and completing again
	_, err := engine.UncompleteChapter(testUser, chapters[0].ID)
	require.NoError(t, err)
	_, err = engine.CompleteChapter(testUser, chapters[0].ID)
	require.NoError(t, err)

	assert.EqualValues(t, 1, countBadges(t, db, testUser, models.BadgeCourseCompletion))
}

func TestFastLearnerBadgeGranted(t *testing.T) {
	engine, db := newTestEngine(t)
	module := createModule(t, db)
	course := createCourse(t, db, module.ID, "ACTIVE")
	chapters := createChapters(t, db, course.ID, 2)

	_, err := engine.StartCourse(testUser, course.ID)
	require.NoError(t, err)
	// started two hours ago, finished now: well under 24 hours
	require.NoError(t, db.Model(&models.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", testUser, course.ID).
		Update("started_at", time.Now().Add(-2*time.Hour)).Error)

	completeCourse(t, engine, testUser, chapters)

	assert.EqualValues(t, 1, countBadges(t, db, testUser, models.BadgeFastLearner))
}

func TestFastLearnerBadgeNotGrantedAfter24Hours(t *testing.T) {
	engine, db := newTestEngine(t)
	module := createModule(t, db)
	course := createCourse(t, db, module.ID, "ACTIVE")
	chapters := createChapters(t, db, course.ID, 2)

	_, err := engine.StartCourse(testUser, course.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", testUser, course.ID).
		Update("started_at", time.Now().Add(-30*time.Hour)).Error)

	completeCourse(t, engine, testUser, chapters)

	assert.Zero(t, countBadges(t, db, testUser, models.BadgeFastLearner))
	// the completion badge is unconditional and still granted
	assert.EqualValues(t, 1, countBadges(t, db, testUser, models.BadgeCourseCompletion))
}

func TestModuleMasterBadge(t *testing.T) {
	engine, db := newTestEngine(t)
	module := createModule(t, db)
	first := createCourse(t, db, module.ID, "ACTIVE")
	second := createCourse(t, db, module.ID, "ACTIVE")
	firstChapters := createChapters(t, db, first.ID, 1)
	secondChapters := createChapters(t, db, second.ID, 1)

	completeCourse(t, engine, testUser, firstChapters)
	assert.Zero(t, countBadges(t, db, testUser, models.BadgeModuleMaster))

	completeCourse(t, engine, testUser, secondChapters)

	var badge models.UserBadge
	require.NoError(t, db.Where("user_id = ? AND badge_type_id = ?", testUser, models.BadgeModuleMaster).First(&badge).Error)
	assert.Equal(t, models.NoCourse, badge.CourseID)

	// re-triggering a completion in the module must not grant a second one
	_, err := engine.UncompleteChapter(testUser, secondChapters[0].ID)
	require.NoError(t, err)
	_, err = engine.CompleteChapter(testUser, secondChapters[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, countBadges(t, db, testUser, models.BadgeModuleMaster))
}

func TestModuleMasterNotGrantedWithoutActiveCourses(t *testing.T) {
	engine, db := newTestEngine(t)
	module := createModule(t, db)
	course := createCourse(t, db, module.ID, "INACTIVE")
	chapters := createChapters(t, db, course.ID, 1)

	completeCourse(t, engine, testUser, chapters)

	assert.Zero(t, countBadges(t, db, testUser, models.BadgeModuleMaster))
}

func TestExplorerBadge(t *testing.T) {
	engine, db := newTestEngine(t)

	var chapterSets [][]models.Chapter
	for i := 0; i < 3; i++ {
		module := createModule(t, db)
		course := createCourse(t, db, module.ID, "ACTIVE")
		chapterSets = append(chapterSets, createChapters(t, db, course.ID, 1))
	}

	completeCourse(t, engine, testUser, chapterSets[0])
	completeCourse(t, engine, testUser, chapterSets[1])
	assert.Zero(t, countBadges(t, db, testUser, models.BadgeExplorer))

	completeCourse(t, engine, testUser, chapterSets[2])

	var badge models.UserBadge
	require.NoError(t, db.Where("user_id = ? AND badge_type_id = ?", testUser, models.BadgeExplorer).First(&badge).Error)
	assert.Equal(t, models.NoCourse, badge.CourseID)
}

// flakyCatalog fails module lookups to simulate a broken collaborator inside
// one badge rule.
type flakyCatalog struct {
	Catalog
}

func (f *flakyCatalog) ActiveCoursesInModule(moduleID uint) ([]models.Course, error) {
	return nil, errors.New("catalog offline")
}

func TestRuleFailureDoesNotBlockOtherRules(t *testing.T) {
	db := setupTestDB(t)
	reader := catalog.NewReader(db)
	progressStore := stores.NewProgressStore(db)
	badgeStore := stores.NewBadgeStore(db)
	evaluator := NewBadgeEvaluator(&flakyCatalog{Catalog: reader}, progressStore, badgeStore, logger.NewNop())
	engine := NewProgressEngine(reader, progressStore, evaluator, logger.NewNop())

	module := createModule(t, db)
	course := createCourse(t, db, module.ID, "ACTIVE")
	chapters := createChapters(t, db, course.ID, 1)

	// the failing module_master rule must neither fail the completion nor
	// stop the remaining rules
	progress, err := engine.CompleteChapter(testUser, chapters[0].ID)
	require.NoError(t, err)
	require.NotNil(t, progress.CompletedAt)

	assert.EqualValues(t, 1, countBadges(t, db, testUser, models.BadgeCourseCompletion))
	assert.EqualValues(t, 1, countBadges(t, db, testUser, models.BadgeFastLearner))
	assert.Zero(t, countBadges(t, db, testUser, models.BadgeModuleMaster))
}

func TestUserBadges(t *testing.T) {
	engine, db := newTestEngine(t)
	module := createModule(t, db)
	course := createCourse(t, db, module.ID, "ACTIVE")
	chapters := createChapters(t, db, course.ID, 1)

	completeCourse(t, engine, testUser, chapters)

	evaluator := engine.badges
	badges, err := evaluator.UserBadges(testUser)
	require.NoError(t, err)
	// course completion + module master (the module's only active course is
	// now completed) + fast learner
	assert.Len(t, badges, 3)
}
