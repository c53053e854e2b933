package stores

import (
	"time"

	"gorm.io/gorm"

	"lms/models"
)

// BadgeStore persists badge grants. The unique index on
// (user_id, badge_type_id, course_id) makes Grant fail with
// gorm.ErrDuplicatedKey when the badge is already held.
type BadgeStore struct {
	db *gorm.DB
}

func NewBadgeStore(db *gorm.DB) *BadgeStore {
	return &BadgeStore{db: db}
}

func (s *BadgeStore) HasBadge(userID, badgeTypeID, courseID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_type_id = ? AND course_id = ?", userID, badgeTypeID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (s *BadgeStore) Grant(userID, badgeTypeID, courseID uint) (*models.UserBadge, error) {
	badge := models.UserBadge{
		UserID:      userID,
		BadgeTypeID: badgeTypeID,
		CourseID:    courseID,
		EarnedAt:    time.Now(),
	}
	if err := s.db.Create(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (s *BadgeStore) BadgesForUser(userID uint) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.db.Where("user_id = ?", userID).Order("earned_at asc").Find(&badges).Error
	return badges, err
}
