package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/certify/core"
)

// Publication statuses shared by courses and lessons.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
)

// Learner progress on a course. Transitions only move forward.
const (
	ProgressNotStarted = "not-started"
	ProgressInProgress = "in-progress"
	ProgressComplete   = "complete"
)

var progressRank = map[string]int{
	ProgressNotStarted: 0,
	ProgressInProgress: 1,
	ProgressComplete:   2,
}

type Course struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Course) IsPublished() bool { return c.Status == StatusPublish }

type Lesson struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (l Lesson) IsPublished() bool { return l.Status == StatusPublish }

// Status is the per (user, course) progress record.
type Status struct {
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt null.Time `json:"completed_at"`
}

func (s Status) IsComplete() bool { return s.Status == ProgressComplete }

// advance moves s to status unless that would be a step back.
func (s *Status) advance(status string, now time.Time) bool {
	if progressRank[status] <= progressRank[s.Status] {
		return false
	}
	s.Status = status
	if status == ProgressComplete {
		s.CompletedAt = null.TimeFrom(now)
	}
	return true
}

// Results is the course results data exposed to the learner.
type Results struct {
	CourseID         string `json:"course_id"`
	UserID           string `json:"user_id"`
	Status           string `json:"status"`
	LessonsTotal     int    `json:"lessons_total"`
	LessonsCompleted int    `json:"lessons_completed"`
}

type NewCourse struct {
	Title  string `json:"title" validate:"required,max=255"`
	Status string `json:"status" validate:"omitempty,oneof=publish draft"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Status = core.CleanString(nc.Status, true /* lower */)
	if nc.Status == "" {
		nc.Status = StatusPublish
	}
	return validate.Struct(nc)
}

type NewLesson struct {
	Title    string `json:"title" validate:"required,max=255"`
	Position int    `json:"position" validate:"gte=0"`
	Status   string `json:"status" validate:"omitempty,oneof=publish draft"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Status = core.CleanString(nl.Status, true /* lower */)
	if nl.Status == "" {
		nl.Status = StatusPublish
	}
	return validate.Struct(nl)
}
