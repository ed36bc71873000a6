package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/user"
	"github.com/trezcool/certify/tests"
)

func TestNewUser_Validate(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	testutil.CreateUser(t, app.UserRepo, "Taken", "taken", "taken@certify.test", "", nil, true)

	valid := func() user.NewUser {
		return user.NewUser{
			Name:            "Ada",
			Username:        "Ada_L",
			Email:           " ADA@certify.test ",
			Password:        "s3cret-pass",
			PasswordConfirm: "s3cret-pass",
			Roles:           []string{user.RoleLearner},
		}
	}

	tests := []struct {
		name      string
		edit      func(nu *user.NewUser)
		wantField string
	}{
		{name: "valid", edit: func(nu *user.NewUser) {}},
		{name: "no name", edit: func(nu *user.NewUser) { nu.Name = " " }, wantField: "name"},
		{name: "no username nor email", edit: func(nu *user.NewUser) { nu.Username, nu.Email = "", "" }, wantField: "username"},
		{name: "bad username", edit: func(nu *user.NewUser) { nu.Username = "ada-l!" }, wantField: "username"},
		{name: "bad email", edit: func(nu *user.NewUser) { nu.Email = "ada" }, wantField: "email"},
		{name: "short password", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "short", "short" }, wantField: "password"},
		{name: "numeric password", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "12345678", "12345678" }, wantField: "password"},
		{name: "spaced password", edit: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "pass word1", "pass word1" }, wantField: "password"},
		{name: "confirm mismatch", edit: func(nu *user.NewUser) { nu.PasswordConfirm = "other-pass" }, wantField: "password_confirm"},
		{name: "unknown role", edit: func(nu *user.NewUser) { nu.Roles = []string{"pirate:"} }, wantField: "roles"},
		{name: "username taken", edit: func(nu *user.NewUser) { nu.Username = "TAKEN" }, wantField: "username"},
		{name: "email taken", edit: func(nu *user.NewUser) { nu.Email = "taken@certify.test" }, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.edit(&nu)
			err := nu.Validate(ctx, app.Validate, app.Users)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "ada_l", nu.Username)
				assert.Equal(t, "ada@certify.test", nu.Email)
				return
			}
			require.Error(t, err)
			fields := make(map[string]bool)
			switch vErr := err.(type) {
			case validator.ValidationErrors:
				for _, fe := range vErr {
					fields[fe.Field()] = true
				}
			case *core.ValidationError:
				for _, fe := range vErr.Fields {
					fields[fe.Field] = true
				}
			default:
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			assert.True(t, fields[tt.wantField], "fields = %v", fields)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	usr := testutil.CreateUser(t, app.UserRepo, "Ada", "ada", "ada@certify.test", "s3cret-pass", nil, true)
	testutil.CreateUser(t, app.UserRepo, "Off", "off", "off@certify.test", "s3cret-pass", nil, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown user", uname: "nobody", pwd: "s3cret-pass", wantErr: user.ErrNotFound},
		{name: "wrong password", uname: "ada", pwd: "nope", wantErr: user.ErrNotFound},
		{name: "inactive", uname: "off", pwd: "s3cret-pass", wantErr: user.ErrInactive},
		{name: "by username", uname: " ADA ", pwd: "s3cret-pass"},
		{name: "by email", uname: "ada@certify.test", pwd: "s3cret-pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.Users.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.False(t, got.LastLogin.IsZero())
		})
	}

	refreshed, err := app.Users.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.LastLogin.IsZero())
}

func TestService_AddOrUpdate(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	testutil.CreateUser(t, app.UserRepo, "Grace", "grace", "grace@certify.test", "", nil, true)

	newUser := func(uname, email, pwd string) user.NewUser {
		return user.NewUser{Username: uname, Email: email, Password: pwd, PasswordConfirm: pwd}
	}

	admin, err := app.Users.AddOrUpdate(ctx, app.Validate, newUser("Root", "root@certify.test", "first-pass"), true)
	require.NoError(t, err)
	assert.Equal(t, "root", admin.Username)
	assert.Equal(t, "root@certify.test", admin.Email)
	assert.True(t, admin.IsAdmin())
	assert.NoError(t, admin.CheckPassword("first-pass"))

	again, err := app.Users.AddOrUpdate(ctx, app.Validate, newUser("", "ROOT@certify.test", "second-pass"), false)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)
	assert.True(t, again.IsAdmin(), "roles are kept")
	assert.NoError(t, again.CheckPassword("second-pass"))

	tests := []struct {
		name       string
		nu         user.NewUser
		wantFields []string
	}{
		{
			name:       "invalid input",
			nu:         newUser("x!", "not-an-email", "1 2"),
			wantFields: []string{"username", "email", "password"},
		},
		{name: "numeric password on update", nu: newUser("root", "", "12345678"), wantFields: []string{"password"}},
		{name: "email of someone else", nu: newUser("root", "grace@certify.test", "third-pass"), wantFields: []string{"email"}},
		{name: "new user with a taken email", nu: newUser("ada", "GRACE@certify.test", "third-pass"), wantFields: []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Users.AddOrUpdate(ctx, app.Validate, tt.nu, false)
			require.Error(t, err)
			fields := make(map[string]bool)
			switch vErr := err.(type) {
			case validator.ValidationErrors:
				for _, fe := range vErr {
					fields[fe.Field()] = true
				}
			case *core.ValidationError:
				for _, fe := range vErr.Fields {
					fields[fe.Field] = true
				}
			default:
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			for _, f := range tt.wantFields {
				assert.True(t, fields[f], "fields = %v", fields)
			}
		})
	}

	// nothing was written by the rejected calls
	_, err = app.Users.GetByUsernameOrEmail(ctx, "x!")
	assert.Equal(t, user.ErrNotFound, err)
	_, err = app.Users.GetByUsernameOrEmail(ctx, "ada")
	assert.Equal(t, user.ErrNotFound, err)
	stored, err := app.Users.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword("second-pass"))
	assert.Equal(t, "root@certify.test", stored.Email)

	reset, err := app.Users.ResetPassword(ctx, "root", "third-pass")
	require.NoError(t, err)
	assert.NoError(t, reset.CheckPassword("third-pass"))

	_, err = app.Users.ResetPassword(ctx, "nobody", "pass")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)

	usr, err := app.Users.Create(ctx, user.NewUser{
		Name: "Ada", Username: "ada", Password: "s3cret-pass", Roles: []string{user.RoleAdmin, user.RoleLearner},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)

	got, err := app.Users.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleAdmin, user.RoleLearner}, got.Roles)
	assert.Empty(t, got.Email)
	assert.True(t, got.IsAdmin())
	assert.True(t, got.IsLearner())
	assert.False(t, got.IsInstructor())
}
