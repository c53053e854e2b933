package models

import (
	"time"

	"gorm.io/gorm"
)

// Badge type ids, fixed by the seed data.
const (
	BadgeCourseCompletion uint = 1
	BadgeModuleMaster     uint = 2
	BadgeFastLearner      uint = 3
	BadgeExplorer         uint = 4
)

// NoCourse is the course id recorded on course-independent badge grants.
const NoCourse uint = 0

// BadgeType describes an achievement badge users can earn
type BadgeType struct {
	gorm.Model
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Criteria    string `json:"criteria"`
}

// UserBadge is a single badge grant. CourseID is NoCourse for badges that are
// earned once per user regardless of course, so the unique index covers both
// the per-course and the global scope.
type UserBadge struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_user_badge;not null"`
	BadgeTypeID uint      `json:"badge_type_id" gorm:"uniqueIndex:idx_user_badge;not null"`
	CourseID    uint      `json:"course_id" gorm:"uniqueIndex:idx_user_badge"`
	EarnedAt    time.Time `json:"earned_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// DefaultBadgeTypes returns the built-in badge catalog.
func DefaultBadgeTypes() []BadgeType {
	return []BadgeType{
		{
			Model:       gorm.Model{ID: BadgeCourseCompletion},
			Name:        "Course Completion",
			Description: "Completed a course",
			Icon:        "trophy",
			Criteria:    "Complete all published chapters of a course",
		},
		{
			Model:       gorm.Model{ID: BadgeModuleMaster},
			Name:        "Module Master",
			Description: "Completed every active course in a module",
			Icon:        "crown",
			Criteria:    "Complete all active courses of one module",
		},
		{
			Model:       gorm.Model{ID: BadgeFastLearner},
			Name:        "Fast Learner",
			Description: "Completed a course within 24 hours of starting it",
			Icon:        "bolt",
			Criteria:    "Finish a course less than 24 hours after starting it",
		},
		{
			Model:       gorm.Model{ID: BadgeExplorer},
			Name:        "Explorer",
			Description: "Completed courses across three different modules",
			Icon:        "compass",
			Criteria:    "Complete courses in 3 or more distinct modules",
		},
	}
}
