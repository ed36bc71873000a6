package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/course"
)

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{repository{db: db}}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.CreatedAt = c.CreatedAt.UTC()
	q := repo.db.Rebind("INSERT INTO courses (id, title, status, created_at) VALUES (?, ?, ?, ?)")
	if _, err := repo.db.ExecContext(ctx, q, c.ID, c.Title, c.Status, c.CreatedAt); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var c course.Course
	q := repo.db.Rebind("SELECT id, title, status, created_at FROM courses WHERE id = ?")
	err := repo.db.QueryRowxContext(ctx, q, id).Scan(&c.ID, &c.Title, &c.Status, &c.CreatedAt)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (repo *courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	l.CreatedAt = l.CreatedAt.UTC()
	q := repo.db.Rebind(`INSERT INTO lessons (id, course_id, title, position, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := repo.db.ExecContext(ctx, q, l.ID, l.CourseID, l.Title, l.Position, l.Status, l.CreatedAt); err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo *courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	var l course.Lesson
	q := repo.db.Rebind("SELECT id, course_id, title, position, status, created_at FROM lessons WHERE id = ?")
	err := repo.db.QueryRowxContext(ctx, q, id).Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.Status, &l.CreatedAt)
	if err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound)
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

func (repo *courseRepository) QueryPublishedLessonIDs(ctx context.Context, courseID string) ([]string, error) {
	ids := make([]string, 0)
	q := repo.db.Rebind(`SELECT id FROM lessons WHERE course_id = ? AND status = ?
		ORDER BY position ASC, created_at ASC, id ASC`)
	if err := repo.db.SelectContext(ctx, &ids, q, courseID, course.StatusPublish); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return ids, nil
}

func (repo *courseRepository) CreateLessonCompletion(ctx context.Context, userID, lessonID string, at time.Time) error {
	q := repo.db.Rebind(`INSERT INTO lesson_completions (user_id, lesson_id, completed_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, lesson_id) DO NOTHING`)
	_, err := repo.db.ExecContext(ctx, q, userID, lessonID, at.UTC())
	return err
}

func (repo *courseRepository) LessonCompleted(ctx context.Context, userID, lessonID string) (bool, error) {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM lesson_completions WHERE user_id = ? AND lesson_id = ?")
	if err := repo.db.GetContext(ctx, &n, q, userID, lessonID); err != nil {
		return false, errors.Wrap(err, "checking lesson completion")
	}
	return n > 0, nil
}

func (repo *courseRepository) CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error) {
	var n int
	q := repo.db.Rebind(`SELECT COUNT(*) FROM lesson_completions lc
		INNER JOIN lessons l ON l.id = lc.lesson_id
		WHERE lc.user_id = ? AND l.course_id = ? AND l.status = ?`)
	err := repo.db.GetContext(ctx, &n, q, userID, courseID, course.StatusPublish)
	return n, err
}

const statusColumns = "user_id, course_id, status, started_at, completed_at"

type statusRow struct {
	UserID      string    `db:"user_id"`
	CourseID    string    `db:"course_id"`
	Status      string    `db:"status"`
	StartedAt   time.Time `db:"started_at"`
	CompletedAt null.Time `db:"completed_at"`
}

func (row statusRow) toStatus() course.Status {
	st := course.Status{
		UserID:      row.UserID,
		CourseID:    row.CourseID,
		Status:      row.Status,
		StartedAt:   row.StartedAt.UTC(),
		CompletedAt: row.CompletedAt,
	}
	if st.CompletedAt.Valid {
		st.CompletedAt.Time = st.CompletedAt.Time.UTC()
	}
	return st
}

func (repo *courseRepository) GetStatus(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (course.Status, error) {
	db := repo.exec(exec)
	var rows []statusRow
	q := db.Rebind("SELECT " + statusColumns + " FROM course_statuses WHERE user_id = ? AND course_id = ?")
	if err := db.SelectContext(ctx, &rows, q, userID, courseID); err != nil {
		return course.Status{}, errors.Wrap(err, "getting course status")
	}
	if len(rows) == 0 {
		return course.Status{}, course.ErrStatusNotFound
	}
	return rows[0].toStatus(), nil
}

func (repo *courseRepository) CreateStatus(ctx context.Context, st course.Status, exec ...core.DBExecutor) error {
	db := repo.exec(exec)
	q := db.Rebind("INSERT INTO course_statuses (" + statusColumns + ") VALUES (?, ?, ?, ?, ?)")
	_, err := db.ExecContext(ctx, q, st.UserID, st.CourseID, st.Status, st.StartedAt.UTC(), st.CompletedAt)
	return err
}

func (repo *courseRepository) UpdateStatus(ctx context.Context, st course.Status, exec ...core.DBExecutor) error {
	db := repo.exec(exec)
	q := db.Rebind("UPDATE course_statuses SET status = ?, completed_at = ? WHERE user_id = ? AND course_id = ?")
	_, err := db.ExecContext(ctx, q, st.Status, st.CompletedAt, st.UserID, st.CourseID)
	return err
}

func (repo *courseRepository) QueryStatuses(ctx context.Context, status string) ([]course.Status, error) {
	var rows []statusRow
	q := repo.db.Rebind("SELECT " + statusColumns + " FROM course_statuses WHERE status = ? ORDER BY started_at ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, status); err != nil {
		return nil, errors.Wrap(err, "querying course statuses")
	}
	statuses := make([]course.Status, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, row.toStatus())
	}
	return statuses, nil
}
