package certificate

import (
	"context"

	"github.com/pkg/errors"
)

// LessonSource answers the lesson questions the policy is evaluated on.
type LessonSource interface {
	PublishedLessonIDs(ctx context.Context, courseID string) ([]string, error)
	LessonCompleted(ctx context.Context, userID, lessonID string) (bool, error)
	// CourseCompleted is the whole-course completion check used for short courses.
	CourseCompleted(ctx context.Context, userID, courseID string) (bool, error)
}

// Policy holds the thresholds a learner's lesson completions are checked against.
type Policy struct {
	// MinLessons is the number of lessons below which the whole-course check decides.
	MinLessons int
	// RequiredMiddle is how many lessons between the first and the last must be completed.
	RequiredMiddle int
}

// Stats counts the completed lessons of a published course.
type Stats struct {
	FirstCompleted  bool `json:"first_completed"`
	LastCompleted   bool `json:"last_completed"`
	MiddleCompleted int  `json:"middle_completed"`
	MiddleTotal     int  `json:"middle_total"`
}

// Result is the outcome of Evaluate.
type Result struct {
	Satisfied bool  `json:"satisfied"`
	Fallback  bool  `json:"fallback"`
	Lessons   int   `json:"lessons"`
	Stats     Stats `json:"stats"`
}

// Evaluate applies the completion policy: first lesson, last lesson and at least
// RequiredMiddle of the lessons in between. Courses with fewer than MinLessons
// published lessons are decided by the whole-course check instead.
func Evaluate(ctx context.Context, src LessonSource, p Policy, userID, courseID string) (Result, error) {
	ids, err := src.PublishedLessonIDs(ctx, courseID)
	if err != nil {
		return Result{}, errors.Wrap(err, "getting published lessons")
	}

	res := Result{Lessons: len(ids)}
	if len(ids) < p.MinLessons || len(ids) == 0 {
		res.Fallback = true
		res.Satisfied, err = src.CourseCompleted(ctx, userID, courseID)
		if err != nil {
			return Result{}, errors.Wrap(err, "checking course completion")
		}
		// informational only here
		if st, err := stats(ctx, src, userID, ids); err == nil {
			res.Stats = st
		}
		return res, nil
	}

	if res.Stats, err = stats(ctx, src, userID, ids); err != nil {
		return Result{}, err
	}

	res.Satisfied = res.Stats.FirstCompleted &&
		res.Stats.LastCompleted &&
		res.Stats.MiddleCompleted >= p.RequiredMiddle
	return res, nil
}

func stats(ctx context.Context, src LessonSource, userID string, ids []string) (Stats, error) {
	var st Stats
	if len(ids) == 0 {
		return st, nil
	}

	done := func(id string) (bool, error) {
		ok, err := src.LessonCompleted(ctx, userID, id)
		return ok, errors.Wrapf(err, "checking lesson %s", id)
	}

	var err error
	if st.FirstCompleted, err = done(ids[0]); err != nil {
		return Stats{}, err
	}
	if len(ids) == 1 {
		st.LastCompleted = st.FirstCompleted
		return st, nil
	}
	if st.LastCompleted, err = done(ids[len(ids)-1]); err != nil {
		return Stats{}, err
	}

	middle := ids[1 : len(ids)-1]
	st.MiddleTotal = len(middle)
	for _, id := range middle {
		ok, err := done(id)
		if err != nil {
			return Stats{}, err
		}
		if ok {
			st.MiddleCompleted++
		}
	}
	return st, nil
}
