package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/certify/apps/api/echo"
	"github.com/trezcool/certify/core/user"
	"github.com/trezcool/certify/tests"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func setup(t *testing.T) (*testutil.App, *echoapi.Server) {
	t.Helper()

	app := testutil.NewApp(t)
	server, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           app.Conf,
		Logger:         app.Logger,
		Validate:       app.Validate,
		Translator:     app.Translator,
		Nonces:         app.Nonces,
		UserSvc:        app.Users,
		CourseSvc:      app.Courses,
		SettingsSvc:    app.Settings,
		CertificateSvc: app.Certificates,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })
	return app, server
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newPageRequest is a browser request: the token travels in the session cookie.
func newPageRequest(t *testing.T, app *testutil.App, method, path, token string, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: app.Conf.Server.SessionCookie, Value: token})
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, app *testutil.App, usr user.User) string {
	token, err := echoapi.GenerateToken(app.Conf, echoapi.GetUserClaims(app.Conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData != nil {
		require.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
