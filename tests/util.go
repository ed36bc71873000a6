// Package testutil prepares migrated databases and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/user"
	logsvc "github.com/trezcool/certify/services/logger"
	"github.com/trezcool/certify/storage/database"
)

// NewLogger returns a logger writing to the test output, with Rollbar disabled.
func NewLogger(t *testing.T, conf *core.Config) core.Logger {
	t.Helper()
	logger := logsvc.NewRollbarLogger(zaptest.NewLogger(t).Sugar(), conf)
	logger.Enable(false)
	return logger
}

// NewConfig returns a test config backed by a sqlite file in the test's temp dir.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	return core.NewTestConfig(filepath.Join(t.TempDir(), "certify.db"))
}

// PrepareDB opens a fresh migrated database, closed when the test ends.
func PrepareDB(t *testing.T, conf ...*core.Config) *sqlx.DB {
	t.Helper()

	var cfg *core.Config
	if len(conf) > 0 {
		cfg = conf[0]
	} else {
		cfg = NewConfig(t)
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a published course with nLessons published lessons in order.
func CreateCourse(t *testing.T, repo course.Repository, title string, nLessons int) (course.Course, []course.Lesson) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(ctx, course.Course{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    course.StatusPublish,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}

	lessons := make([]course.Lesson, 0, nLessons)
	for i := 0; i < nLessons; i++ {
		l, err := repo.CreateLesson(ctx, course.Lesson{
			ID:        uuid.NewString(),
			CourseID:  crs.ID,
			Title:     fmt.Sprintf("%s - lesson %d", title, i+1),
			Position:  i + 1,
			Status:    course.StatusPublish,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateCourse() failed: %v", err)
		}
		lessons = append(lessons, l)
	}
	return crs, lessons
}

// CompleteLessons marks the lessons done for the user, without touching the course status.
func CompleteLessons(t *testing.T, repo course.Repository, userID string, lessons ...course.Lesson) {
	t.Helper()

	for _, l := range lessons {
		if err := repo.CreateLessonCompletion(context.Background(), userID, l.ID, time.Now().UTC()); err != nil {
			t.Fatalf("CompleteLessons() failed: %v", err)
		}
	}
}
