package stores

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lms/models"
)

// ProgressStore persists chapter and course progress rows. The composite
// unique indexes on (user_id, chapter_id) and (user_id, course_id) are the
// cross-process guard against double inserts.
type ProgressStore struct {
	db *gorm.DB
}

func NewProgressStore(db *gorm.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) FindChapterProgress(userID, chapterID uint) (*models.ChapterProgress, error) {
	var progress models.ChapterProgress
	err := s.db.Where("user_id = ? AND chapter_id = ?", userID, chapterID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// UpsertChapterProgress inserts the row or, when the (user, chapter) row
// already exists, updates its completion fields in place.
func (s *ProgressStore) UpsertChapterProgress(progress *models.ChapterProgress) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "updated_at"}),
	}).Create(progress).Error
}

// SaveChapterProgress writes back an already-loaded row by primary key.
func (s *ProgressStore) SaveChapterProgress(progress *models.ChapterProgress) error {
	return s.db.Save(progress).Error
}

// CountCompletedChapters counts the user's completed chapters that belong to
// the course and are still published.
func (s *ProgressStore) CountCompletedChapters(userID, courseID uint) (int64, error) {
	var completed int64
	err := s.db.Model(&models.ChapterProgress{}).
		Joins("JOIN chapters ON chapters.id = chapter_progresses.chapter_id").
		Where("chapter_progresses.user_id = ? AND chapter_progresses.completed = ?", userID, true).
		Where("chapters.course_id = ? AND chapters.is_deleted = ? AND chapters.is_published = ?", courseID, false, true).
		Count(&completed).Error
	return completed, err
}

func (s *ProgressStore) ChapterProgressForCourse(userID, courseID uint) ([]models.ChapterProgress, error) {
	var rows []models.ChapterProgress
	err := s.db.
		Joins("JOIN chapters ON chapters.id = chapter_progresses.chapter_id").
		Where("chapter_progresses.user_id = ? AND chapters.course_id = ?", userID, courseID).
		Find(&rows).Error
	return rows, err
}

func (s *ProgressStore) FindCourseProgress(userID, courseID uint) (*models.CourseProgress, error) {
	var progress models.CourseProgress
	err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (s *ProgressStore) CreateCourseProgress(progress *models.CourseProgress) error {
	return s.db.Create(progress).Error
}

func (s *ProgressStore) SaveCourseProgress(progress *models.CourseProgress) error {
	return s.db.Save(progress).Error
}

func (s *ProgressStore) CompletedCourseProgress(userID uint) ([]models.CourseProgress, error) {
	var rows []models.CourseProgress
	err := s.db.
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Find(&rows).Error
	return rows, err
}

// DeleteProgress removes the course progress row and every chapter progress
// row for chapters of that course. Deleting progress that does not exist is
// not an error.
func (s *ProgressStore) DeleteProgress(userID, courseID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		chapterIDs := tx.Model(&models.Chapter{}).Select("id").Where("course_id = ?", courseID)
		if err := tx.Where("user_id = ? AND chapter_id IN (?)", userID, chapterIDs).
			Delete(&models.ChapterProgress{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND course_id = ?", userID, courseID).
			Delete(&models.CourseProgress{}).Error
	})
}
