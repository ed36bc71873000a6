package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/certify/core"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrStatusNotFound = errors.New("course status not found")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		// QueryPublishedLessonIDs returns the course's published lesson ids in display order.
		QueryPublishedLessonIDs(ctx context.Context, courseID string) ([]string, error)

		// CreateLessonCompletion is a no-op when the lesson is already completed.
		CreateLessonCompletion(ctx context.Context, userID, lessonID string, at time.Time) error
		LessonCompleted(ctx context.Context, userID, lessonID string) (bool, error)
		CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error)

		GetStatus(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (Status, error)
		CreateStatus(ctx context.Context, st Status, exec ...core.DBExecutor) error
		UpdateStatus(ctx context.Context, st Status, exec ...core.DBExecutor) error
		QueryStatuses(ctx context.Context, status string) ([]Status, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	return svc.repo.CreateCourse(ctx, Course{
		ID:        uuid.NewString(),
		Title:     nc.Title,
		Status:    nc.Status,
		CreatedAt: nowFunc(),
	})
}

func (svc *Service) CreateLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, Lesson{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Title:     nl.Title,
		Position:  nl.Position,
		Status:    nl.Status,
		CreatedAt: nowFunc(),
	})
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

// PublishedLessonIDs returns the ordered published lesson ids of a course.
// An unknown course is ErrNotFound, an existing course with no lessons is an empty list.
func (svc *Service) PublishedLessonIDs(ctx context.Context, courseID string) ([]string, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPublishedLessonIDs(ctx, courseID)
}

func (svc *Service) LessonCompleted(ctx context.Context, userID, lessonID string) (bool, error) {
	return svc.repo.LessonCompleted(ctx, userID, lessonID)
}

// CourseCompleted is the whole-course check: the status record says complete, or the
// course has published lessons and every one of them is completed.
func (svc *Service) CourseCompleted(ctx context.Context, userID, courseID string) (bool, error) {
	st, err := svc.repo.GetStatus(ctx, userID, courseID)
	if err == nil && st.IsComplete() {
		return true, nil
	}
	if err != nil && errors.Cause(err) != ErrStatusNotFound {
		return false, err
	}

	ids, err := svc.PublishedLessonIDs(ctx, courseID)
	if err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	for _, id := range ids {
		done, err := svc.repo.LessonCompleted(ctx, userID, id)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}

// PublishedLessons returns the course's published lessons in order.
func (svc *Service) PublishedLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	ids, err := svc.PublishedLessonIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lessons := make([]Lesson, 0, len(ids))
	for _, id := range ids {
		l, err := svc.repo.GetLessonByID(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "getting lesson")
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

// IsLastLesson reports whether lesson is the final published lesson of its course.
func (svc *Service) IsLastLesson(ctx context.Context, lesson Lesson) (bool, error) {
	ids, err := svc.repo.QueryPublishedLessonIDs(ctx, lesson.CourseID)
	if err != nil {
		return false, err
	}
	return len(ids) > 0 && ids[len(ids)-1] == lesson.ID, nil
}

// CompleteLesson records the lesson as done and starts the course for the user.
func (svc *Service) CompleteLesson(ctx context.Context, userID, lessonID string) (Lesson, error) {
	lesson, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	if !lesson.IsPublished() {
		return Lesson{}, ErrLessonNotFound
	}

	now := nowFunc()
	if err = svc.repo.CreateLessonCompletion(ctx, userID, lessonID, now); err != nil {
		return Lesson{}, errors.Wrap(err, "creating lesson completion")
	}
	if _, err = svc.advanceStatus(ctx, userID, lesson.CourseID, ProgressInProgress, now); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}

// EnsureCourseComplete marks the course complete for the user: the status record is created
// when missing and updated when not complete yet. It reports whether anything was written.
func (svc *Service) EnsureCourseComplete(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (bool, error) {
	return svc.advanceStatus(ctx, userID, courseID, ProgressComplete, nowFunc(), exec...)
}

func (svc *Service) advanceStatus(
	ctx context.Context,
	userID, courseID, status string,
	now time.Time,
	exec ...core.DBExecutor,
) (bool, error) {
	st, err := svc.repo.GetStatus(ctx, userID, courseID, exec...)
	switch {
	case err == nil:
		if !st.advance(status, now) {
			return false, nil
		}
		return true, errors.Wrap(svc.repo.UpdateStatus(ctx, st, exec...), "updating course status")
	case errors.Cause(err) == ErrStatusNotFound:
		st = Status{UserID: userID, CourseID: courseID, Status: ProgressNotStarted, StartedAt: now}
		st.advance(status, now)
		return true, errors.Wrap(svc.repo.CreateStatus(ctx, st, exec...), "creating course status")
	default:
		return false, err
	}
}

// Status returns the user's progress record, a not-started one when there is none.
func (svc *Service) Status(ctx context.Context, userID, courseID string) (Status, error) {
	st, err := svc.repo.GetStatus(ctx, userID, courseID)
	if errors.Cause(err) == ErrStatusNotFound {
		return Status{UserID: userID, CourseID: courseID, Status: ProgressNotStarted, CompletedAt: null.Time{}}, nil
	}
	return st, err
}

// InProgress lists every status record that has been started but not completed.
func (svc *Service) InProgress(ctx context.Context) ([]Status, error) {
	return svc.repo.QueryStatuses(ctx, ProgressInProgress)
}

// Results returns the course results data for the user.
func (svc *Service) Results(ctx context.Context, userID, courseID string) (Results, error) {
	ids, err := svc.PublishedLessonIDs(ctx, courseID)
	if err != nil {
		return Results{}, err
	}
	done, err := svc.repo.CountCompletedLessons(ctx, userID, courseID)
	if err != nil {
		return Results{}, errors.Wrap(err, "counting completed lessons")
	}
	st, err := svc.Status(ctx, userID, courseID)
	if err != nil {
		return Results{}, errors.Wrap(err, "getting course status")
	}
	return Results{
		CourseID:         courseID,
		UserID:           userID,
		Status:           st.Status,
		LessonsTotal:     len(ids),
		LessonsCompleted: done,
	}, nil
}
