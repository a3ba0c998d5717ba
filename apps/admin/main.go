package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/ledger"
	logsvc "github.com/afyafund/afyafund/services/logger"
	notifsvc "github.com/afyafund/afyafund/services/notification"
	"github.com/afyafund/afyafund/storage/database"
	sqlxrepos "github.com/afyafund/afyafund/storage/database/sqlx"
)

var stdLogger *log.Logger

func main() {
	defer os.Exit(0)

	stdLogger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	dbx := sqlx.NewDb(db, "postgres")

	causeRepo := sqlxrepos.NewCauseRepository(dbx)
	donationRepo := sqlxrepos.NewDonationRepository(dbx)
	notifSvc := notifsvc.NewConsoleService(logger)

	// start CLI
	cli := commandLine{
		db:       db,
		causeSvc: cause.NewService(causeRepo, donationRepo, notifSvc, logger),
		ledger:   ledger.New(causeRepo, donationRepo),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		stdLogger.Fatal(err)
	}
}
