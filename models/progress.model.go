package models

import "time"

// ChapterProgress tracks a user's completion of a single chapter.
// Invariant: Completed == false implies CompletedAt == nil.
type ChapterProgress struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	UserID      uint       `json:"user_id" gorm:"uniqueIndex:idx_user_chapter;not null"`
	ChapterID   uint       `json:"chapter_id" gorm:"uniqueIndex:idx_user_chapter;not null"`
	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CourseProgress tracks a user's progress through a course.
// ProgressPercentage is 100 exactly when CompletedAt is set.
type CourseProgress struct {
	ID                 uint       `gorm:"primarykey" json:"id"`
	UserID             uint       `json:"user_id" gorm:"uniqueIndex:idx_user_course;not null"`
	CourseID           uint       `json:"course_id" gorm:"uniqueIndex:idx_user_course;not null"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	ProgressPercentage float64    `json:"progress_percentage" gorm:"default:0"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
