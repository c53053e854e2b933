package services

import (
	"time"

	"lms/models"
)

// ChapterView pairs a published chapter with the user's completion state.
type ChapterView struct {
	Chapter     models.Chapter `json:"chapter"`
	Completed   bool           `json:"completed"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// CourseOverview is the read model for a user's standing in one course.
// Progress is nil when the user has not started the course.
type CourseOverview struct {
	Progress          *models.CourseProgress `json:"progress"`
	Chapters          []ChapterView          `json:"chapters"`
	TotalChapters     int                    `json:"total_chapters"`
	CompletedChapters int                    `json:"completed_chapters"`
}

// CourseOverview returns the current course progress together with the
// per-chapter completion state over the published chapters.
func (e *ProgressEngine) CourseOverview(userID, courseID uint) (*CourseOverview, error) {
	course, err := e.catalog.CourseByID(courseID)
	if err != nil {
		return nil, storeErr(err)
	}
	if course == nil {
		return nil, ErrInvalidCourse
	}

	chapters, err := e.catalog.PublishedChapters(courseID)
	if err != nil {
		return nil, storeErr(err)
	}

	rows, err := e.store.ChapterProgressForCourse(userID, courseID)
	if err != nil {
		return nil, storeErr(err)
	}
	byChapter := make(map[uint]models.ChapterProgress, len(rows))
	for _, row := range rows {
		byChapter[row.ChapterID] = row
	}

	overview := &CourseOverview{
		Chapters:      make([]ChapterView, 0, len(chapters)),
		TotalChapters: len(chapters),
	}
	for _, chapter := range chapters {
		view := ChapterView{Chapter: chapter}
		if row, ok := byChapter[chapter.ID]; ok && row.Completed {
			view.Completed = true
			view.CompletedAt = row.CompletedAt
			overview.CompletedChapters++
		}
		overview.Chapters = append(overview.Chapters, view)
	}

	overview.Progress, err = e.store.FindCourseProgress(userID, courseID)
	if err != nil {
		return nil, storeErr(err)
	}
	return overview, nil
}
