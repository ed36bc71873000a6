package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/certify/apps/api/echo"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/user"
	"github.com/trezcool/certify/tests"
)

func Test_courseApi_createCourse(t *testing.T) {
	app, server := setup(t)
	admin := testutil.CreateUser(t, app.UserRepo, "Root", "root", "root@certify.test", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, app.UserRepo, "Ada", "ada", "ada@certify.test", "", []string{user.RoleLearner}, true)
	instructor := testutil.CreateUser(t, app.UserRepo, "Grace", "grace", "grace@certify.test", "", []string{user.RoleInstructor}, true)
	adminToken := getToken(t, app, admin)

	tests := []httpTest{
		{name: "auth required", body: marshallObj(t, course.NewCourse{Title: "Go"}), wantCode: http.StatusUnauthorized},
		{
			name: "author required", body: marshallObj(t, course.NewCourse{Title: "Go"}), token: getToken(t, app, student),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid", body: marshallObj(t, course.NewCourse{Title: " ", Status: "archived"}), token: adminToken,
			wantCode: http.StatusBadRequest,
		},
		{name: "created", body: marshallObj(t, course.NewCourse{Title: " Go 101 "}), token: adminToken, wantCode: http.StatusCreated},
		{
			name: "created by instructor", body: marshallObj(t, course.NewCourse{Title: "Go 101"}),
			token: getToken(t, app, instructor), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/courses", tt.token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var crs course.Course
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))
				assert.Equal(t, "Go 101", crs.Title)
				assert.Equal(t, course.StatusPublish, crs.Status)
				assert.NotEmpty(t, crs.ID)
			}
		})
	}
}

func Test_courseApi_createLesson(t *testing.T) {
	app, server := setup(t)
	admin := testutil.CreateUser(t, app.UserRepo, "Root", "root", "root@certify.test", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, app, admin)
	crs, _ := testutil.CreateCourse(t, app.CourseRepo, "Go 101", 0)

	tests := []httpTest{
		{
			name: "unknown course", path: "/v1/courses/unknown/lessons", token: adminToken,
			body: marshallObj(t, course.NewLesson{Title: "Intro"}), wantCode: http.StatusNotFound,
		},
		{
			name: "invalid", path: "/v1/courses/" + crs.ID + "/lessons", token: adminToken,
			body: marshallObj(t, course.NewLesson{Title: "Intro", Position: -1}), wantCode: http.StatusBadRequest,
		},
		{
			name: "created", path: "/v1/courses/" + crs.ID + "/lessons", token: adminToken,
			body: marshallObj(t, course.NewLesson{Title: "Intro", Position: 1}), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_progress(t *testing.T) {
	app, server := setup(t)
	fx := newPagesFixture(t, app)

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/unknown/progress", fx.token)
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+fx.course.ID+"/progress", fx.token)
	server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var p struct {
		RequiredMiddle int                `json:"required_middle"`
		Result         certificate.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 4, p.RequiredMiddle)
	assert.True(t, p.Result.Satisfied)
	assert.False(t, p.Result.Fallback)
	assert.Equal(t, 10, p.Result.Lessons)
	assert.Equal(t, certificate.Stats{FirstCompleted: true, LastCompleted: true, MiddleCompleted: 4, MiddleTotal: 8}, p.Result.Stats)
}

func Test_courseApi_completeLesson(t *testing.T) {
	app, server := setup(t)
	learner := testutil.CreateUser(t, app.UserRepo, "Ada", "ada", "ada@certify.test", "", nil, true)
	token := getToken(t, app, learner)
	crs, lessons := testutil.CreateCourse(t, app.CourseRepo, "Go 101", 10)
	testutil.CompleteLessons(t, app.CourseRepo, learner.ID, lessons[0], lessons[1], lessons[2], lessons[3], lessons[4])

	complete := func(lessonID string) (int, echoapi.CompleteLessonResponse) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/"+lessonID+"/complete", token)
		server.ServeHTTP(rec, req)
		var resp echoapi.CompleteLessonResponse
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		}
		return rec.Code, resp
	}

	code, _ := complete("unknown")
	assert.Equal(t, http.StatusNotFound, code)

	code, resp := complete(lessons[5].ID)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, crs.ID, resp.CourseID)
	assert.Equal(t, certificate.OutcomeNotEligible, resp.Outcome)
	assert.Empty(t, resp.CertificateURL)

	// the last lesson completes the policy
	code, resp = complete(lessons[9].ID)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, certificate.OutcomeIssued, resp.Outcome)
	assert.Equal(t, app.Certificates.URL(certificate.CertificateHash(crs.ID, learner.ID)), resp.CertificateURL)

	code, resp = complete(lessons[9].ID)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, certificate.OutcomeAlreadyIssued, resp.Outcome)

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/results", token)
	server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res course.Results
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, course.ProgressComplete, res.Status)
	assert.Equal(t, 10, res.LessonsTotal)
	assert.Equal(t, 7, res.LessonsCompleted)
}
