package services

import (
	"errors"
	"math"
	"sync"
	"time"

	"gorm.io/gorm"

	"lms/logger"
	"lms/models"
)

// Catalog is the read-only course catalog the engine consults. Lookups return
// a nil entity when the id is unknown.
type Catalog interface {
	ChapterByID(id uint) (*models.Chapter, error)
	CourseByID(id uint) (*models.Course, error)
	PublishedChapterCount(courseID uint) (int64, error)
	PublishedChapters(courseID uint) ([]models.Chapter, error)
	ActiveCoursesInModule(moduleID uint) ([]models.Course, error)
}

// ProgressStore persists per-user chapter and course progress. Finds return a
// nil row when no progress exists.
type ProgressStore interface {
	FindChapterProgress(userID, chapterID uint) (*models.ChapterProgress, error)
	UpsertChapterProgress(progress *models.ChapterProgress) error
	SaveChapterProgress(progress *models.ChapterProgress) error
	CountCompletedChapters(userID, courseID uint) (int64, error)
	ChapterProgressForCourse(userID, courseID uint) ([]models.ChapterProgress, error)
	FindCourseProgress(userID, courseID uint) (*models.CourseProgress, error)
	CreateCourseProgress(progress *models.CourseProgress) error
	SaveCourseProgress(progress *models.CourseProgress) error
	CompletedCourseProgress(userID uint) ([]models.CourseProgress, error)
	DeleteProgress(userID, courseID uint) error
}

// BadgeStore persists badge grants.
type BadgeStore interface {
	HasBadge(userID, badgeTypeID, courseID uint) (bool, error)
	Grant(userID, badgeTypeID, courseID uint) (*models.UserBadge, error)
	BadgesForUser(userID uint) ([]models.UserBadge, error)
}

// ProgressEngine maintains the consistency chain from chapter completion to
// course percentage to course completion.
type ProgressEngine struct {
	catalog Catalog
	store   ProgressStore
	badges  *BadgeEvaluator
	log     *logger.Logger

	recalcMu sync.Mutex // serializes the recalculate read-modify-write
}

func NewProgressEngine(catalog Catalog, store ProgressStore, badges *BadgeEvaluator, log *logger.Logger) *ProgressEngine {
	return &ProgressEngine{
		catalog: catalog,
		store:   store,
		badges:  badges,
		log:     log,
	}
}

// StartCourse creates the course progress row for the user. Starting a course
// twice fails with ErrAlreadyStarted.
func (e *ProgressEngine) StartCourse(userID, courseID uint) (*models.CourseProgress, error) {
	course, err := e.catalog.CourseByID(courseID)
	if err != nil {
		return nil, storeErr(err)
	}
	if course == nil {
		return nil, ErrInvalidCourse
	}

	existing, err := e.store.FindCourseProgress(userID, courseID)
	if err != nil {
		return nil, storeErr(err)
	}
	if existing != nil {
		return nil, ErrAlreadyStarted
	}

	progress := &models.CourseProgress{
		UserID:    userID,
		CourseID:  courseID,
		StartedAt: time.Now(),
	}
	if err := e.store.CreateCourseProgress(progress); err != nil {
		// Unique index on (user_id, course_id): a concurrent start won the race
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyStarted
		}
		return nil, storeErr(err)
	}
	return progress, nil
}

// ensureStarted creates the course progress row if the user has none yet.
// Losing a concurrent create race counts as started.
func (e *ProgressEngine) ensureStarted(userID, courseID uint) error {
	existing, err := e.store.FindCourseProgress(userID, courseID)
	if err != nil {
		return storeErr(err)
	}
	if existing != nil {
		return nil
	}

	progress := &models.CourseProgress{
		UserID:    userID,
		CourseID:  courseID,
		StartedAt: time.Now(),
	}
	if err := e.store.CreateCourseProgress(progress); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			e.log.Warn("concurrent course start, treating as started",
				"user_id", userID, "course_id", courseID)
			return nil
		}
		return storeErr(err)
	}
	return nil
}

// CompleteChapter marks a chapter completed for the user, starting the owning
// course implicitly when needed, and recalculates the course progress.
// Completing an already-completed chapter is a no-op on the chapter row.
func (e *ProgressEngine) CompleteChapter(userID, chapterID uint) (*models.CourseProgress, error) {
	chapter, err := e.catalog.ChapterByID(chapterID)
	if err != nil {
		return nil, storeErr(err)
	}
	if chapter == nil {
		return nil, ErrInvalidChapter
	}

	if err := e.ensureStarted(userID, chapter.CourseID); err != nil {
		return nil, err
	}

	existing, err := e.store.FindChapterProgress(userID, chapterID)
	if err != nil {
		return nil, storeErr(err)
	}
	if existing == nil || !existing.Completed {
		now := time.Now()
		progress := &models.ChapterProgress{
			UserID:      userID,
			ChapterID:   chapterID,
			Completed:   true,
			CompletedAt: &now,
		}
		if err := e.store.UpsertChapterProgress(progress); err != nil {
			return nil, storeErr(err)
		}
	}

	return e.recalculate(userID, chapter.CourseID)
}

// UncompleteChapter reverts a chapter completion. Un-completing a chapter the
// user never touched fails with ErrChapterProgressNotFound.
func (e *ProgressEngine) UncompleteChapter(userID, chapterID uint) (*models.CourseProgress, error) {
	chapter, err := e.catalog.ChapterByID(chapterID)
	if err != nil {
		return nil, storeErr(err)
	}
	if chapter == nil {
		return nil, ErrInvalidChapter
	}

	existing, err := e.store.FindChapterProgress(userID, chapterID)
	if err != nil {
		return nil, storeErr(err)
	}
	if existing == nil {
		return nil, ErrChapterProgressNotFound
	}

	existing.Completed = false
	existing.CompletedAt = nil
	if err := e.store.SaveChapterProgress(existing); err != nil {
		return nil, storeErr(err)
	}

	return e.recalculate(userID, chapter.CourseID)
}

// ResetCourseProgress deletes the user's course progress and every chapter
// progress row for that course. Resetting progress that does not exist
// succeeds.
func (e *ProgressEngine) ResetCourseProgress(userID, courseID uint) error {
	course, err := e.catalog.CourseByID(courseID)
	if err != nil {
		return storeErr(err)
	}
	if course == nil {
		return ErrInvalidCourse
	}

	if err := e.store.DeleteProgress(userID, courseID); err != nil {
		return storeErr(err)
	}
	return nil
}

// recalculate recomputes the course percentage and completion flag for one
// (user, course) pair. A course with no published chapters keeps its last
// value. When the course transitions into completed the badge evaluator is
// notified; when a chapter is un-completed after full completion the
// completion flag is reverted.
func (e *ProgressEngine) recalculate(userID, courseID uint) (*models.CourseProgress, error) {
	e.recalcMu.Lock()
	defer e.recalcMu.Unlock()

	progress, err := e.store.FindCourseProgress(userID, courseID)
	if err != nil {
		return nil, storeErr(err)
	}
	if progress == nil {
		// the row vanished between the chapter write and the recalculation
		// (concurrent reset); start the course again so the chapter state
		// that already landed has a row to land on
		if err := e.ensureStarted(userID, courseID); err != nil {
			return nil, err
		}
		progress, err = e.store.FindCourseProgress(userID, courseID)
		if err != nil {
			return nil, storeErr(err)
		}
		if progress == nil {
			return nil, storeErr(errors.New("course progress missing after restart"))
		}
	}

	total, err := e.catalog.PublishedChapterCount(courseID)
	if err != nil {
		return nil, storeErr(err)
	}
	if total == 0 {
		return progress, nil
	}

	completed, err := e.store.CountCompletedChapters(userID, courseID)
	if err != nil {
		return nil, storeErr(err)
	}

	progress.ProgressPercentage = round2(float64(completed) / float64(total) * 100)

	justCompleted := false
	if completed == total {
		progress.ProgressPercentage = 100
		if progress.CompletedAt == nil {
			now := time.Now()
			progress.CompletedAt = &now
			justCompleted = true
		}
	} else if progress.CompletedAt != nil {
		progress.CompletedAt = nil
	}

	if err := e.store.SaveCourseProgress(progress); err != nil {
		return nil, storeErr(err)
	}

	e.log.Debug("course progress recalculated",
		"user_id", userID, "course_id", courseID,
		"completed", completed, "total", total,
		"percentage", progress.ProgressPercentage)

	if justCompleted {
		e.log.Info("course completed",
			"user_id", userID, "course_id", courseID)
		if e.badges != nil {
			e.badges.OnCourseCompleted(userID, courseID, progress)
		}
	}
	return progress, nil
}

// round2 rounds to 2 decimal places using standard rounding.
func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
