package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certify/core/nonce"
	"github.com/trezcool/certify/core/user"
	"github.com/trezcool/certify/tests"
)

const updateCertReqs = "update_cert_requirements"

func TestSettingsPage(t *testing.T) {
	app, server := setup(t)
	admin := testutil.CreateUser(t, app.UserRepo, "Root", "root", "root@certify.test", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, app.UserRepo, "Ada", "ada", "ada@certify.test", "", []string{user.RoleLearner}, true)
	adminToken := getToken(t, app, admin)

	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
		want     []string
	}{
		{name: "anonymous", path: "/admin/settings", wantCode: http.StatusUnauthorized},
		{name: "not an admin", path: "/admin/settings", token: getToken(t, app, student), wantCode: http.StatusForbidden},
		{
			name: "form", path: "/admin/settings", token: adminToken, wantCode: http.StatusOK,
			want: []string{`name="_csrf"`, `value="` + updateCertReqs + `"`, `value="4"`},
		},
		{name: "updated", path: "/admin/settings?updated=1", token: adminToken, wantCode: http.StatusOK, want: []string{"Settings saved."}},
		{name: "error 1", path: "/admin/settings?updated=0&error=1", token: adminToken, wantCode: http.StatusOK, want: []string{"expired"}},
		{name: "error 2", path: "/admin/settings?updated=0&error=2", token: adminToken, wantCode: http.StatusOK, want: []string{"No value"}},
		{name: "error 3", path: "/admin/settings?updated=0&error=3", token: adminToken, wantCode: http.StatusOK, want: []string{"whole number"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newPageRequest(t, app, http.MethodGet, tt.path, tt.token, nil)
			server.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code)
			for _, s := range tt.want {
				assert.Contains(t, rec.Body.String(), s)
			}
		})
	}
}

func TestSettingsForm(t *testing.T) {
	ctx := context.Background()
	app, server := setup(t)
	admin := testutil.CreateUser(t, app.UserRepo, "Root", "root", "root@certify.test", "", []string{user.RoleAdmin}, true)
	other := testutil.CreateUser(t, app.UserRepo, "Boss", "boss", "boss@certify.test", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, app.UserRepo, "Ada", "ada", "ada@certify.test", "", []string{user.RoleLearner}, true)
	adminToken := getToken(t, app, admin)
	validNonce := app.Nonces.Make(updateCertReqs, admin.ID)

	form := func(csrf string, data ...string) url.Values {
		v := url.Values{"action": {updateCertReqs}}
		if csrf != "" {
			v.Set("_csrf", csrf)
		}
		if len(data) > 0 {
			v.Set("data", data[0])
		}
		return v
	}
	expiredNonce := func() string {
		defer func(f func() time.Time) { nonce.NowFunc = f }(nonce.NowFunc)
		nonce.NowFunc = func() time.Time { return time.Now().Add(-2 * app.Conf.Certify.NonceLifetime) }
		return app.Nonces.Make(updateCertReqs, admin.ID)
	}()

	tests := []struct {
		name         string
		token        string
		form         url.Values
		wantCode     int
		wantLocation string
		wantRequired int
	}{
		{name: "not an admin", token: getToken(t, app, student), form: form(validNonce, "6"), wantCode: http.StatusForbidden, wantRequired: 4},
		{
			name: "unknown action", token: adminToken, form: url.Values{"action": {"delete_everything"}},
			wantCode: http.StatusBadRequest, wantRequired: 4,
		},
		{
			name: "no nonce", token: adminToken, form: form("", "6"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=1", wantRequired: 4,
		},
		{
			name: "bad nonce", token: adminToken, form: form("garbage", "6"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=1", wantRequired: 4,
		},
		{
			name: "someone else's nonce", token: adminToken, form: form(app.Nonces.Make(updateCertReqs, other.ID), "6"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=1", wantRequired: 4,
		},
		{
			name: "expired nonce", token: adminToken, form: form(expiredNonce, "6"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=1", wantRequired: 4,
		},
		{
			name: "missing data", token: adminToken, form: form(validNonce),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=2", wantRequired: 4,
		},
		{
			name: "not a number", token: adminToken, form: form(validNonce, "abc"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=3", wantRequired: 4,
		},
		{
			name: "empty", token: adminToken, form: form(validNonce, "  "),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=3", wantRequired: 4,
		},
		{
			name: "negative", token: adminToken, form: form(validNonce, "-1"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=3", wantRequired: 4,
		},
		{
			name: "decimal", token: adminToken, form: form(validNonce, "2.5"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=3", wantRequired: 4,
		},
		{
			name: "overflow", token: adminToken, form: form(validNonce, "99999999999999999999999"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=0&error=3", wantRequired: 4,
		},
		{
			name: "saved", token: adminToken, form: form(validNonce, " 6 "),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=1", wantRequired: 6,
		},
		{
			name: "saved again", token: adminToken, form: form(validNonce, "4"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=1", wantRequired: 4,
		},
		{
			name: "zero", token: adminToken, form: form(validNonce, "0"),
			wantCode: http.StatusFound, wantLocation: "/admin/settings?updated=1", wantRequired: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newPageRequest(t, app, http.MethodPost, "/admin/post", tt.token, tt.form)
			server.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))

			got, err := app.Settings.RequiredMiddleLessons(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRequired, got)
		})
	}
}
