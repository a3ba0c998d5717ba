package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/donation"
)

// NopLogger discards everything. Keeps service wiring quiet in tests.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Debug(msg string, args ...interface{}) {}
func (NopLogger) Info(msg string, args ...interface{})  {}
func (NopLogger) Warn(msg string, args ...interface{})  {}
func (NopLogger) Error(msg string, args ...interface{}) {}
func (NopLogger) Fatal(msg string, args ...interface{}) {}

func CreateCause(
	t *testing.T,
	repo cause.Repository,
	organizerID, title string,
	goalAmount int64,
	status string,
	createdAt ...time.Time,
) cause.Cause {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c := cause.Cause{
		OrganizerID:     organizerID,
		Title:           title,
		Description:     title,
		BeneficiaryName: "Beneficiary",
		GoalAmount:      goalAmount,
		Currency:        "IDR",
		Status:          status,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	c, err := repo.CreateCause(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCause() failed: %v", err)
	}
	return c
}

func CreateDonation(
	t *testing.T,
	repo donation.Repository,
	causeID, donorID string,
	amount int64,
	status string,
) donation.Donation {
	tstamp := time.Now().UTC()
	d := donation.Donation{
		CauseID:         causeID,
		DonorID:         donorID,
		DonorName:       "Donor " + donorID,
		DonorEmail:      donorID + "@test.cd",
		Amount:          amount,
		Currency:        "IDR",
		PaymentIntentID: "PI-" + causeID + "-" + donorID + "-" + tstamp.Format("150405.000000000"),
		Status:          status,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	if donorID == "" {
		d.DonorName = donation.AnonymousDonorName
		d.DonorEmail = ""
		d.IsAnonymous = true
	}
	d, err := repo.CreateDonation(context.Background(), d)
	if err != nil {
		t.Fatalf("CreateDonation() failed: %v", err)
	}
	return d
}
