package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lms/logger"
	"lms/models"
)

// BadgeEvaluator awards achievement badges when a course reaches completion.
// Badges are a non-critical side effect: every rule is best effort, and a
// failure inside a rule is logged and swallowed so it can never fail the
// progress update that triggered it.
type BadgeEvaluator struct {
	catalog    Catalog
	progress   ProgressStore
	badgeStore BadgeStore
	log        *logger.Logger
}

func NewBadgeEvaluator(catalog Catalog, progress ProgressStore, badgeStore BadgeStore, log *logger.Logger) *BadgeEvaluator {
	return &BadgeEvaluator{
		catalog:    catalog,
		progress:   progress,
		badgeStore: badgeStore,
		log:        log,
	}
}

// OnCourseCompleted evaluates every badge rule for the just-completed course.
// Rules are independent: a failure in one does not stop the others.
func (e *BadgeEvaluator) OnCourseCompleted(userID, courseID uint, progress *models.CourseProgress) {
	e.tryRule("course_completion", userID, func() error {
		return e.checkCourseCompletion(userID, courseID)
	})
	e.tryRule("module_master", userID, func() error {
		return e.checkModuleMaster(userID, courseID)
	})
	e.tryRule("fast_learner", userID, func() error {
		return e.checkFastLearner(userID, courseID, progress)
	})
	e.tryRule("explorer", userID, func() error {
		return e.checkExplorer(userID)
	})
}

// tryRule runs one rule and captures any failure into the log.
func (e *BadgeEvaluator) tryRule(rule string, userID uint, fn func() error) {
	if err := fn(); err != nil {
		e.log.Error("badge rule failed",
			"rule", rule, "user_id", userID, "error", err)
	}
}

// grant inserts the badge unless it is already held. A concurrent duplicate
// insert loses to the unique index and counts as already granted.
func (e *BadgeEvaluator) grant(userID, badgeTypeID, courseID uint) error {
	has, err := e.badgeStore.HasBadge(userID, badgeTypeID, courseID)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	if _, err := e.badgeStore.Grant(userID, badgeTypeID, courseID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	e.log.Info("badge granted",
		"user_id", userID, "badge_type_id", badgeTypeID, "course_id", courseID)
	return nil
}

// checkCourseCompletion grants the per-course completion badge.
func (e *BadgeEvaluator) checkCourseCompletion(userID, courseID uint) error {
	return e.grant(userID, models.BadgeCourseCompletion, courseID)
}

// checkModuleMaster grants the global Module Master badge once the number of
// courses the user completed in the module equals the number of active
// courses there. Modules without active courses never qualify.
func (e *BadgeEvaluator) checkModuleMaster(userID, courseID uint) error {
	course, err := e.catalog.CourseByID(courseID)
	if err != nil {
		return err
	}
	if course == nil {
		return fmt.Errorf("course %d missing from catalog", courseID)
	}

	activeCourses, err := e.catalog.ActiveCoursesInModule(course.ModuleID)
	if err != nil {
		return err
	}
	if len(activeCourses) == 0 {
		return nil
	}

	completedCourses, err := e.progress.CompletedCourseProgress(userID)
	if err != nil {
		return err
	}
	completedInModule := 0
	for _, cp := range completedCourses {
		completedCourse, err := e.catalog.CourseByID(cp.CourseID)
		if err != nil {
			return err
		}
		if completedCourse != nil && completedCourse.ModuleID == course.ModuleID {
			completedInModule++
		}
	}

	if completedInModule != len(activeCourses) {
		return nil
	}
	return e.grant(userID, models.BadgeModuleMaster, models.NoCourse)
}

// checkFastLearner grants the per-course Fast Learner badge when the course
// was finished strictly less than 24 hours after it was started.
func (e *BadgeEvaluator) checkFastLearner(userID, courseID uint, progress *models.CourseProgress) error {
	if progress == nil || progress.CompletedAt == nil {
		return nil
	}
	if progress.CompletedAt.Sub(progress.StartedAt) >= 24*time.Hour {
		return nil
	}
	return e.grant(userID, models.BadgeFastLearner, courseID)
}

// checkExplorer grants the global Explorer badge once the user's completed
// courses span three or more distinct modules.
func (e *BadgeEvaluator) checkExplorer(userID uint) error {
	completedCourses, err := e.progress.CompletedCourseProgress(userID)
	if err != nil {
		return err
	}

	moduleIDs := make(map[uint]struct{})
	for _, cp := range completedCourses {
		course, err := e.catalog.CourseByID(cp.CourseID)
		if err != nil {
			return err
		}
		if course != nil {
			moduleIDs[course.ModuleID] = struct{}{}
		}
	}

	if len(moduleIDs) < 3 {
		return nil
	}
	return e.grant(userID, models.BadgeExplorer, models.NoCourse)
}

// UserBadges returns every badge the user has earned.
func (e *BadgeEvaluator) UserBadges(userID uint) ([]models.UserBadge, error) {
	badges, err := e.badgeStore.BadgesForUser(userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return badges, nil
}
