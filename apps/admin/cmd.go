package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/ledger"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	causeSvc *cause.Service
	ledger   *ledger.Ledger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run database migrations (up, down, status, ...)")
	fmt.Println("  verifycause -cause ID -verifier ID - mark a cause's beneficiary as verified")
	fmt.Println("  reconcile -cause ID - recompute a cause's ledger totals from its donations")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	verifyCauseCmd := flag.NewFlagSet("verifycause", flag.ExitOnError)
	verifyCauseID := verifyCauseCmd.String("cause", "", "The cause's ID.")
	verifyCauseVerifier := verifyCauseCmd.String("verifier", "", "The reviewing admin's ID.")

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)
	reconcileCauseID := reconcileCmd.String("cause", "", "The cause's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "verifycause":
		if err := verifyCauseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *verifyCauseID == "" || *verifyCauseVerifier == "" {
			verifyCauseCmd.Usage()
			return errHelp
		}
		return cli.verifyCause(*verifyCauseID, *verifyCauseVerifier)
	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reconcileCauseID == "" {
			reconcileCmd.Usage()
			return errHelp
		}
		return cli.reconcile(*reconcileCauseID)
	default:
		cli.printUsage()
		return errHelp
	}
}
