package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/certify/core"
	logsvc "github.com/trezcool/certify/services/logger"
	"github.com/trezcool/certify/storage/database"
)

func main() {
	conf := core.NewConfig()

	local, err := logsvc.NewZap("ADMIN", conf.Debug)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(local, conf)
	logger.Enable(!conf.Debug)

	os.Exit(run(conf, logger))
}

func run(conf *core.Config, logger *logsvc.RollbarLogger) int {
	defer logger.Sync()

	// the connection is lazy: `createdb` must run before the app database exists
	db, err := database.Open(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening database: %v", err), err)
		return 1
	}
	defer func() { _ = db.Close() }()

	core.ParseEmailTemplates(logger, false /* strict */)

	cli := newCommandLine(conf, db, logger, os.Stdout)
	if err := cli.run(context.Background(), os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin: %v", err), err)
		}
		return 1
	}
	return 0
}
