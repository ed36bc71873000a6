package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/certify/apps/api/echo"
	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/nonce"
	"github.com/trezcool/certify/core/settings"
	"github.com/trezcool/certify/core/user"
	emailsvc "github.com/trezcool/certify/services/email"
	logsvc "github.com/trezcool/certify/services/logger"
	schedulersvc "github.com/trezcool/certify/services/scheduler"
	"github.com/trezcool/certify/storage/database"
	sqlxrepos "github.com/trezcool/certify/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLoggerFunc(name string) func(conf *core.Config) (core.Logger, error) {
	return func(conf *core.Config) (core.Logger, error) {
		local, err := logsvc.NewZap(name, conf.Debug)
		if err != nil {
			return nil, errors.Wrapf(err, "building %s logger", name)
		}
		logger := logsvc.NewRollbarLogger(local, conf)
		logger.Enable(!conf.Debug)
		return logger, nil
	}
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newNonceGenerator(conf *core.Config) *nonce.Generator {
	return nonce.NewGenerator(conf.SecretKey, conf.Certify.NonceLifetime)
}

func newSettingsService(conf *core.Config, repo settings.Repository) *settings.Service {
	return settings.NewService(repo, conf.Certify.DefaultRequiredMiddleLessons)
}

func newScheduler(conf *core.Config, svc *certificate.Service, logger core.Logger) (*schedulersvc.Scheduler, error) {
	return schedulersvc.NewScheduler(conf.Certify.SweepSchedule, svc, logger)
}

type serverParams struct {
	dig.In

	Conf           *core.Config
	Logger         core.Logger
	Validate       *validator.Validate
	Translator     ut.Translator
	Nonces         *nonce.Generator
	UserSvc        *user.Service
	CourseSvc      *course.Service
	SettingsSvc    *settings.Service
	CertificateSvc *certificate.Service
}

func newServer(p serverParams) (*echoapi.Server, error) {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           p.Conf,
		Logger:         p.Logger,
		Validate:       p.Validate,
		Translator:     p.Translator,
		Nonces:         p.Nonces,
		UserSvc:        p.UserSvc,
		CourseSvc:      p.CourseSvc,
		SettingsSvc:    p.SettingsSvc,
		CertificateSvc: p.CertificateSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLoggerFunc("API")))
	must(c.Provide(newLoggerFunc("DB"), dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newNonceGenerator))

	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(sqlxrepos.NewCertificateRepository, dig.As(new(certificate.Repository))))
	must(c.Provide(sqlxrepos.NewSettingsRepository, dig.As(new(settings.Repository))))

	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(newSettingsService))
	must(c.Provide(certificate.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
