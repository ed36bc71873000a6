package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/tests"
)

func TestService_PublishedLessonIDs(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)

	crs, err := app.Courses.CreateCourse(ctx, course.NewCourse{Title: "Go 101", Status: course.StatusPublish})
	require.NoError(t, err)

	// created out of order, one draft
	third, err := app.Courses.CreateLesson(ctx, crs.ID, course.NewLesson{Title: "third", Position: 3, Status: course.StatusPublish})
	require.NoError(t, err)
	first, err := app.Courses.CreateLesson(ctx, crs.ID, course.NewLesson{Title: "first", Position: 1, Status: course.StatusPublish})
	require.NoError(t, err)
	_, err = app.Courses.CreateLesson(ctx, crs.ID, course.NewLesson{Title: "draft", Position: 2, Status: course.StatusDraft})
	require.NoError(t, err)
	second, err := app.Courses.CreateLesson(ctx, crs.ID, course.NewLesson{Title: "second", Position: 2, Status: course.StatusPublish})
	require.NoError(t, err)

	ids, err := app.Courses.PublishedLessonIDs(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, ids)

	isLast, err := app.Courses.IsLastLesson(ctx, third)
	require.NoError(t, err)
	assert.True(t, isLast)
	isLast, err = app.Courses.IsLastLesson(ctx, second)
	require.NoError(t, err)
	assert.False(t, isLast)

	_, err = app.Courses.PublishedLessonIDs(ctx, "unknown")
	assert.Equal(t, course.ErrNotFound, err)

	empty, err := app.Courses.CreateCourse(ctx, course.NewCourse{Title: "Empty", Status: course.StatusPublish})
	require.NoError(t, err)
	ids, err = app.Courses.PublishedLessonIDs(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = app.Courses.CreateLesson(ctx, "unknown", course.NewLesson{Title: "orphan", Status: course.StatusPublish})
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_CompleteLesson(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	learner := testutil.CreateUser(t, app.UserRepo, "Ada", "ada", "ada@certify.test", "", nil, true)
	crs, lessons := testutil.CreateCourse(t, app.CourseRepo, "Go 101", 3)

	st, err := app.Courses.Status(ctx, learner.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ProgressNotStarted, st.Status)

	_, err = app.Courses.CompleteLesson(ctx, learner.ID, lessons[1].ID)
	require.NoError(t, err)
	// twice is a no-op
	_, err = app.Courses.CompleteLesson(ctx, learner.ID, lessons[1].ID)
	require.NoError(t, err)

	done, err := app.Courses.LessonCompleted(ctx, learner.ID, lessons[1].ID)
	require.NoError(t, err)
	assert.True(t, done)
	done, err = app.Courses.LessonCompleted(ctx, learner.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.False(t, done)

	st, err = app.Courses.Status(ctx, learner.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ProgressInProgress, st.Status)
	assert.False(t, st.CompletedAt.Valid)

	res, err := app.Courses.Results(ctx, learner.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, course.Results{
		CourseID:         crs.ID,
		UserID:           learner.ID,
		Status:           course.ProgressInProgress,
		LessonsTotal:     3,
		LessonsCompleted: 1,
	}, res)

	_, err = app.Courses.CompleteLesson(ctx, learner.ID, "unknown")
	assert.Equal(t, course.ErrLessonNotFound, err)
}

func TestService_CourseCompleted(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	learner := testutil.CreateUser(t, app.UserRepo, "Ada", "ada", "ada@certify.test", "", nil, true)
	crs, lessons := testutil.CreateCourse(t, app.CourseRepo, "Go 101", 3)
	empty, _ := testutil.CreateCourse(t, app.CourseRepo, "Empty", 0)

	done, err := app.Courses.CourseCompleted(ctx, learner.ID, empty.ID)
	require.NoError(t, err)
	assert.False(t, done, "a course without lessons is not completed by lessons")

	testutil.CompleteLessons(t, app.CourseRepo, learner.ID, lessons[:2]...)
	done, err = app.Courses.CourseCompleted(ctx, learner.ID, crs.ID)
	require.NoError(t, err)
	assert.False(t, done)

	testutil.CompleteLessons(t, app.CourseRepo, learner.ID, lessons[2])
	done, err = app.Courses.CourseCompleted(ctx, learner.ID, crs.ID)
	require.NoError(t, err)
	assert.True(t, done)

	// a complete status record is enough
	changed, err := app.Courses.EnsureCourseComplete(ctx, learner.ID, empty.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	done, err = app.Courses.CourseCompleted(ctx, learner.ID, empty.ID)
	require.NoError(t, err)
	assert.True(t, done)

	changed, err = app.Courses.EnsureCourseComplete(ctx, learner.ID, empty.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestNewCourse_Validate(t *testing.T) {
	app := testutil.NewApp(t)

	tests := []struct {
		name       string
		data       course.NewCourse
		wantErr    bool
		wantStatus string
	}{
		{name: "no title", data: course.NewCourse{Title: "   "}, wantErr: true},
		{name: "bad status", data: course.NewCourse{Title: "Go", Status: "archived"}, wantErr: true},
		{name: "default status", data: course.NewCourse{Title: " Go "}, wantStatus: course.StatusPublish},
		{name: "draft", data: course.NewCourse{Title: "Go", Status: "DRAFT"}, wantStatus: course.StatusDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(app.Validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, tt.data.Status)
			assert.Equal(t, "Go", tt.data.Title)
		})
	}
}
