package main

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/donation"
	"github.com/afyafund/afyafund/core/ledger"
	notifsvc "github.com/afyafund/afyafund/services/notification"
	inmemdb "github.com/afyafund/afyafund/storage/database/inmem"
	testutil "github.com/afyafund/afyafund/tests"
)

func setup(t *testing.T) (*commandLine, cause.Repository, donation.Repository) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	causeRepo := inmemdb.NewCauseRepository(db)
	donationRepo := inmemdb.NewDonationRepository(db)

	cli := &commandLine{
		causeSvc: cause.NewService(causeRepo, donationRepo, notifsvc.NewDummyService(), testutil.NopLogger{}),
		ledger:   ledger.New(causeRepo, donationRepo),
	}
	return cli, causeRepo, donationRepo
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "down", "redo", "reset", "status", "version": // pass
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_verifyCause(t *testing.T) {
	cli, causeRepo, _ := setup(t)

	c := testutil.CreateCause(t, causeRepo, "org1", "Spinal surgery", 100_00, cause.StatusPendingVerification)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "missing flags", args: []string{"verifycause"}, wantErr: errHelp},
		{name: "missing verifier", args: []string{"verifycause", "-cause", c.ID}, wantErr: errHelp},
		{name: "unknown cause", args: []string{"verifycause", "-cause", "nope", "-verifier", "admin1"}, wantErr: cause.ErrNotFound},
		{name: "ok", args: []string{"verifycause", "-cause", c.ID, "-verifier", "admin1"}},
		{name: "already verified", args: []string{"verifycause", "-cause", c.ID, "-verifier", "admin1"}, wantErr: cause.ErrAlreadyVerified},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	got, err := causeRepo.GetCauseByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCauseByID() failed: %v", err)
	}
	if !got.IsVerified || got.VerifiedBy != "admin1" {
		t.Errorf("verification = %v/%s; want true/admin1", got.IsVerified, got.VerifiedBy)
	}
}

func Test_commandLine_reconcile(t *testing.T) {
	cli, causeRepo, donationRepo := setup(t)

	c := testutil.CreateCause(t, causeRepo, "org1", "Dialysis fund", 100_00, cause.StatusActive)
	testutil.CreateDonation(t, donationRepo, c.ID, "donor1", 30_00, donation.StatusCompleted)
	testutil.CreateDonation(t, donationRepo, c.ID, "donor2", 20_00, donation.StatusCompleted)
	testutil.CreateDonation(t, donationRepo, c.ID, "donor3", 99_00, donation.StatusFailed)

	tests := []cliTest{
		{name: "missing flags", args: []string{"reconcile"}, wantErr: errHelp},
		{name: "unknown cause", args: []string{"reconcile", "-cause", "nope"}, wantErr: cause.ErrNotFound},
		{name: "ok", args: []string{"reconcile", "-cause", c.ID}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	got, err := causeRepo.GetCauseByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCauseByID() failed: %v", err)
	}
	if got.CurrentAmount != 50_00 || got.DonorCount != 2 {
		t.Errorf("totals = %d/%d; want 5000/2", got.CurrentAmount, got.DonorCount)
	}
}
