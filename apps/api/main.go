package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // nolint:gosec

	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/certify/apps/api/di/dig"
	echoapi "github.com/trezcool/certify/apps/api/echo"
	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/settings"
	schedulersvc "github.com/trezcool/certify/services/scheduler"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sqlx.DB,
		options *settings.Service,
		scheduler *schedulersvc.Scheduler,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{
			"config": conf.String(),
		})

		core.ParseEmailTemplates(apiLogger, conf.Debug)

		if err := options.EnsureDefaults(context.Background()); err != nil {
			apiLogger.Fatal(fmt.Sprintf("writing default options: %v", err), err)
		}

		if syncer, ok := apiLogger.(interface{ Sync() }); ok {
			defer syncer.Sync()
		}
		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.NewInt("sweep_jobs").Set(int64(scheduler.Jobs()))

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service and the certificate sweep

		scheduler.Start()

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			if err := scheduler.Stop(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop the sweep: %v", err), err)
			}

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
