package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/settings"
	"github.com/trezcool/certify/core/user"
	emailsvc "github.com/trezcool/certify/services/email"
	"github.com/trezcool/certify/storage/database"
	sqlxrepos "github.com/trezcool/certify/storage/database/sqlx"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = stderrors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	db         *sqlx.DB
	validate   *validator.Validate
	translator ut.Translator
	users      *user.Service
	options    *settings.Service
	certs      *certificate.Service
	out        io.Writer
}

func newCommandLine(conf *core.Config, db *sqlx.DB, logger core.Logger, out io.Writer) *commandLine {
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	users := user.NewService(sqlxrepos.NewUserRepository(db))
	courses := course.NewService(sqlxrepos.NewCourseRepository(db))
	options := settings.NewService(sqlxrepos.NewSettingsRepository(db), conf.Certify.DefaultRequiredMiddleLessons)
	return &commandLine{
		conf:       conf,
		db:         db,
		validate:   validate,
		translator: translator,
		users:      users,
		options:    options,
		certs: certificate.NewService(
			db, sqlxrepos.NewCertificateRepository(db), courses, options, users, mailSvc, logger, conf,
		),
		out: out,
	}
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	root := cli.rootCmd()
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}
	return root.ExecuteContext(ctx)
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administer the certify database and settings",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return usage(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.createDBCmd(),
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.settingsCmd(),
		cli.sweepCmd(),
	)
	return root
}

func usage(cmd *cobra.Command) error {
	_ = cmd.Usage()
	return errHelp
}

// translate turns validator errors into a core.ValidationError with readable field messages.
func (cli *commandLine) translate(err error) error {
	var vErrs validator.ValidationErrors
	if !stderrors.As(err, &vErrs) {
		return err
	}
	fields := make([]core.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, core.FieldError{Field: fe.Field(), Error: fe.Translate(cli.translator)})
	}
	return core.NewValidationError(err, fields...)
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) createDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "createdb",
		Short: "Create the postgres role and database of the app, if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return database.CreateIfNotExist(cmd.Context(), cli.conf)
		},
	}
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command against the embedded migrations",
		Long: `Run a goose command against the embedded migrations.

Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version,
create NAME [go|sql], fix`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usage(cmd)
			}
			return gooseRunFunc(cli.db, args[0], args[1:]...)
		},
	}
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		name, uname, email string
		admin              bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reset their password if they exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" || email == "" {
				return usage(cmd)
			}
			pwd, err := cli.readPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				return usage(cmd)
			}
			nu := user.NewUser{Name: name, Username: uname, Email: email, Password: pwd, PasswordConfirm: pwd}
			usr, err := cli.users.AddOrUpdate(cmd.Context(), cli.validate, nu, admin)
			if err != nil {
				return cli.translate(err)
			}
			fmt.Fprintf(cli.out, "user %s saved (admin: %t)\n", usr.Username, usr.IsAdmin())
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "The user's full name; defaults to the username")
	cmd.Flags().StringVarP(&uname, "username", "u", "", "The user's username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "The user's email. The password will be prompted next.")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant every role")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" {
				return usage(cmd)
			}
			pwd, err := cli.readPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				return usage(cmd)
			}
			_, err = cli.users.ResetPassword(cmd.Context(), uname, pwd)
			return err
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "The user's username or email. The password will be prompted next.")
	return cmd
}

func (cli *commandLine) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Issue the certificates that became due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := cli.certs.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "checked: %d, issued: %d, failed: %d\n", report.Checked, report.Issued, report.Failed)
			return nil
		},
	}
}
