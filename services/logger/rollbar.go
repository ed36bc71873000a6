package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/user"
)

// RollbarLogger reports to Rollbar and writes the same entries locally through zap.
type RollbarLogger struct {
	local *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(local *zap.SugaredLogger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{local: local}
}

// NewZap builds the local logger: human readable in debug, JSON otherwise.
func NewZap(name string, debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Named(name).Sugar(), nil
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes both the local buffers and the Rollbar queue.
func (l RollbarLogger) Sync() {
	_ = l.local.Sync()
	rollbar.Wait()
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []interface{}) {
	var usrSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	kvs := make([]interface{}, 0, 2*len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			// only set one User
			if !usrSet {
				rollbar.SetPerson(a.ID, a.Username, a.Email)
				kvs = append(kvs, "user_id", a.ID)
				usrSet = true
			}
		case error:
			rbArgs = append(rbArgs, a)
			kvs = append(kvs, "error", a)
		case map[string]interface{}:
			rbArgs = append(rbArgs, a)
			for k, v := range a {
				kvs = append(kvs, k, v)
			}
		default:
			rbArgs = append(rbArgs, a)
			kvs = append(kvs, "extra", a)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return rbArgs, kvs
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	l.local.Debugw(msg, kvs...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	l.local.Infow(msg, kvs...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	l.local.Warnw(msg, kvs...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	l.local.Errorw(msg, kvs...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Wait()
	l.local.Fatalw(msg, kvs...)
}
