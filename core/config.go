package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		DisableReqLogs            bool
		SessionCookie             string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		Path          string // sqlite only
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	CertifyConfig struct {
		// DefaultRequiredMiddleLessons is written to the options table when the option is missing.
		DefaultRequiredMiddleLessons int
		// MinLessons is the lesson count below which the whole-course check applies instead.
		MinLessons    int
		NonceLifetime time.Duration
		// SweepSchedule is a cron spec; empty disables the sweep.
		SweepSchedule string
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		WorkDir          string
		BaseURL          string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Certify  CertifyConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Env vars are prefixed with the upper-cased env name, e.g. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          workDir,
		BaseURL:          strings.TrimRight(v.GetString("baseURL"), "/"),
		DefaultFromEmail: *from,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			SessionCookie:             v.GetString("server.sessionCookie"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			Path:          v.GetString("database.path"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Certify: CertifyConfig{
			DefaultRequiredMiddleLessons: v.GetInt("certify.defaultRequiredMiddleLessons"),
			MinLessons:                   v.GetInt("certify.minLessons"),
			NonceLifetime:                v.GetDuration("certify.nonceLifetime"),
			SweepSchedule:                v.GetString("certify.sweepSchedule"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("appName", "Certify")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("baseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "Certify <noreply@localhost>")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.sessionCookie", "certify_session")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "certify")
	v.SetDefault("database.path", "certify.db")
	v.SetDefault("database.user", "certify")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("certify.defaultRequiredMiddleLessons", 4)
	v.SetDefault("certify.minLessons", 8)
	v.SetDefault("certify.nonceLifetime", 24*time.Hour)
	v.SetDefault("certify.sweepSchedule", "")
}

// NewTestConfig returns a Config suitable for tests: sqlite engine, no outside services.
func NewTestConfig(dbPath string) *Config {
	return &Config{
		AppName:          "Certify",
		Env:              "TEST",
		Build:            "test",
		Debug:            true,
		TestMode:         true,
		SecretKey:        "test-secret",
		WorkDir:          Getwd(),
		BaseURL:          "http://certify.test",
		DefaultFromEmail: mail.Address{Name: "Certify", Address: "noreply@certify.test"},
		Server: ServerConfig{
			SessionCookie:             "certify_session",
			DisableReqLogs:            true,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Database: DatabaseConfig{Engine: "sqlite", Path: dbPath},
		Certify: CertifyConfig{
			DefaultRequiredMiddleLessons: 4,
			MinLessons:                   8,
			NonceLifetime:                24 * time.Hour,
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s db=%s", c.AppName, c.Build, c.Env, c.Database.Engine)
}
