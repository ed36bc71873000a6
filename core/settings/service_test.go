package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certify/core/settings"
	"github.com/trezcool/certify/tests"
)

func TestService_RequiredMiddleLessons(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)

	// EnsureDefaults ran in NewApp
	n, err := app.Settings.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, app.Settings.SetRequiredMiddleLessons(ctx, 7))
	n, err = app.Settings.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	// EnsureDefaults keeps what an admin saved
	require.NoError(t, app.Settings.EnsureDefaults(ctx))
	n, err = app.Settings.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	require.NoError(t, app.Settings.SetRequiredMiddleLessons(ctx, 0))
	n, err = app.Settings.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, settings.ErrNegative, app.Settings.SetRequiredMiddleLessons(ctx, -1))
}

func TestService_RequiredMiddleLessons_fallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	svc := settings.NewService(app.SettingsRepo, 5)

	_, err := app.DB.Exec("DELETE FROM options")
	require.NoError(t, err)
	n, err := svc.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, app.SettingsRepo.SetOption(ctx, settings.RequiredMiddleLessons, "lots"))
	n, err = svc.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestService_inMemory(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(testutil.NewMemorySettings(), 3)

	n, err := svc.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "missing option falls back to the default")

	require.NoError(t, svc.SetRequiredMiddleLessons(ctx, 9))
	require.NoError(t, svc.EnsureDefaults(ctx))
	n, err = svc.RequiredMiddleLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}
