package catalog

import (
	"errors"

	"gorm.io/gorm"

	"lms/models"
)

// Reader provides read-only access to the course catalog. Lookups return a
// nil entity when the row is missing or soft-deleted; errors are reserved for
// store failures.
type Reader struct {
	db *gorm.DB
}

func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

func (r *Reader) ChapterByID(id uint) (*models.Chapter, error) {
	var chapter models.Chapter
	err := r.db.Where("id = ? AND is_deleted = ?", id, false).First(&chapter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (r *Reader) CourseByID(id uint) (*models.Course, error) {
	var course models.Course
	err := r.db.Where("id = ? AND is_deleted = ?", id, false).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// PublishedChapterCount returns how many published chapters a course has.
// Draft and deleted chapters never count toward progress denominators.
func (r *Reader) PublishedChapterCount(courseID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.Chapter{}).
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Count(&total).Error
	return total, err
}

func (r *Reader) PublishedChapters(courseID uint) ([]models.Chapter, error) {
	var chapters []models.Chapter
	err := r.db.
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Order("order_index asc").
		Find(&chapters).Error
	return chapters, err
}

func (r *Reader) ActiveCoursesInModule(moduleID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.
		Where("module_id = ? AND is_deleted = ? AND status = ?", moduleID, false, "ACTIVE").
		Order("id asc").
		Find(&courses).Error
	return courses, err
}
