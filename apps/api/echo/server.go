package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/nonce"
	"github.com/trezcool/certify/core/settings"
	"github.com/trezcool/certify/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Nonces     *nonce.Generator

		UserSvc        *user.Service
		CourseSvc      *course.Service
		SettingsSvc    *settings.Service
		CertificateSvc *certificate.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) (*Server, error) {
	rdr, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.app.Renderer = rdr
	s.setup()

	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	return s, nil
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	// HTML pages read the user from the session cookie, when there is one
	pages := s.app.Group("", s.auth.sessionMiddleware)
	registerPages(pages, s.deps)
	registerSettings(pages, s.deps, s.auth)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)
	registerUserAPI(v1, jwt, s.deps, s.auth)
	registerCourseAPI(v1, jwt, s.deps, s.auth)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error the server stopped on.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives OS interrupts and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the app to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Certify!")
}
