package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/nonce"
	"github.com/trezcool/certify/core/settings"
	"github.com/trezcool/certify/core/user"
	emailsvc "github.com/trezcool/certify/services/email"
	sqlxrepos "github.com/trezcool/certify/storage/database/sqlx"
)

// App holds every service wired on a fresh test database, the way the api binary wires them.
type App struct {
	Conf       *core.Config
	DB         *sqlx.DB
	Logger     core.Logger
	Mail       *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator
	Nonces     *nonce.Generator

	UserRepo     user.Repository
	CourseRepo   course.Repository
	CertRepo     certificate.Repository
	SettingsRepo settings.Repository

	Users        *user.Service
	Courses      *course.Service
	Settings     *settings.Service
	Certificates *certificate.Service
}

func NewApp(t *testing.T) *App {
	t.Helper()

	conf := NewConfig(t)
	db := PrepareDB(t, conf)
	logger := NewLogger(t, conf)
	core.ParseEmailTemplates(logger, true /* strict */)

	app := &App{
		Conf:         conf,
		DB:           db,
		Logger:       logger,
		Mail:         emailsvc.NewConsoleServiceMock(conf, logger),
		Validate:     validator.New(),
		Translator:   core.NewTranslator(),
		Nonces:       nonce.NewGenerator(conf.SecretKey, conf.Certify.NonceLifetime),
		UserRepo:     sqlxrepos.NewUserRepository(db),
		CourseRepo:   sqlxrepos.NewCourseRepository(db),
		CertRepo:     sqlxrepos.NewCertificateRepository(db),
		SettingsRepo: sqlxrepos.NewSettingsRepository(db),
	}
	core.InitValidators(app.Validate, app.Translator)
	user.InitValidators(app.Validate, app.Translator)

	app.Users = user.NewService(app.UserRepo)
	app.Courses = course.NewService(app.CourseRepo)
	app.Settings = settings.NewService(app.SettingsRepo, conf.Certify.DefaultRequiredMiddleLessons)
	app.Certificates = certificate.NewService(
		db, app.CertRepo, app.Courses, app.Settings, app.Users, app.Mail, logger, conf,
	)
	if err := app.Settings.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	return app
}
