package donation_test

import (
	"context"
	"testing"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/donation"
	"github.com/afyafund/afyafund/core/ledger"
	notifsvc "github.com/afyafund/afyafund/services/notification"
	paymentsvc "github.com/afyafund/afyafund/services/payment"
	inmemdb "github.com/afyafund/afyafund/storage/database/inmem"
	testutil "github.com/afyafund/afyafund/tests"
)

type stubDisbursements struct {
	disbursed bool
}

func (s *stubDisbursements) HasDisbursed(context.Context, string) (bool, error) {
	return s.disbursed, nil
}

// withdrawingDisbursements consumes funds through the ledger before answering,
// modeling a disbursement approval committing between the refund's fast-fail
// check and its locked recheck.
type withdrawingDisbursements struct {
	ledger  *ledger.Ledger
	causeID string
	amount  int64
}

func (s *withdrawingDisbursements) HasDisbursed(ctx context.Context, _ string) (bool, error) {
	if _, err := s.ledger.Withdraw(ctx, s.causeID, s.amount); err != nil {
		return false, err
	}
	return false, nil
}

type stubAlerter struct {
	alerts []donation.Donation
}

func (s *stubAlerter) DonationCompleted(d donation.Donation) {
	s.alerts = append(s.alerts, d)
}

type testDeps struct {
	svc           *donation.Service
	causeRepo     cause.Repository
	donationRepo  donation.Repository
	gateway       *paymentsvc.DummyGateway
	notifSvc      *notifsvc.DummyService
	disbursements *stubDisbursements
	alerter       *stubAlerter
}

func setup(t *testing.T) testDeps {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	causeRepo := inmemdb.NewCauseRepository(db)
	donationRepo := inmemdb.NewDonationRepository(db)
	gateway := paymentsvc.NewDummyGateway()
	notifSvc := notifsvc.NewDummyService()
	disbursements := &stubDisbursements{}
	alerter := &stubAlerter{}

	svc := donation.NewService(
		donationRepo,
		causeRepo,
		gateway,
		ledger.New(causeRepo, donationRepo),
		disbursements,
		notifSvc,
		testutil.NopLogger{},
	).WithAlerter(alerter)

	return testDeps{
		svc:           svc,
		causeRepo:     causeRepo,
		donationRepo:  donationRepo,
		gateway:       gateway,
		notifSvc:      notifSvc,
		disbursements: disbursements,
		alerter:       alerter,
	}
}

func TestService_Create(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	active := testutil.CreateCause(t, deps.causeRepo, "org1", "Heart surgery", 1_000_00, cause.StatusActive)
	draft := testutil.CreateCause(t, deps.causeRepo, "org1", "Draft cause", 1_000_00, cause.StatusDraft)
	paused := testutil.CreateCause(t, deps.causeRepo, "org1", "Paused cause", 1_000_00, cause.StatusPaused)

	t.Run("cause not found", func(t *testing.T) {
		_, _, err := deps.svc.Create(ctx, donation.NewDonation{CauseID: "nope", Amount: 10_00})
		if err != cause.ErrNotFound {
			t.Errorf("Create() error = %v; want %v", err, cause.ErrNotFound)
		}
	})

	t.Run("cause not active", func(t *testing.T) {
		for _, c := range []cause.Cause{draft, paused} {
			_, _, err := deps.svc.Create(ctx, donation.NewDonation{CauseID: c.ID, Amount: 10_00})
			if err != donation.ErrCauseNotActive {
				t.Errorf("Create(%s) error = %v; want %v", c.Status, err, donation.ErrCauseNotActive)
			}
		}
	})

	t.Run("ok", func(t *testing.T) {
		d, intent, err := deps.svc.Create(ctx, donation.NewDonation{
			CauseID:    active.ID,
			DonorID:    "donor1",
			DonorName:  "Neema",
			DonorEmail: "neema@test.cd",
			Amount:     50_00,
			Message:    "Pole sana",
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if d.Status != donation.StatusPendingPayment {
			t.Errorf("Status = %s; want %s", d.Status, donation.StatusPendingPayment)
		}
		if d.Currency != active.Currency {
			t.Errorf("Currency = %s; want %s (cause default)", d.Currency, active.Currency)
		}
		if d.PaymentIntentID != intent.ID {
			t.Errorf("PaymentIntentID = %s; want %s", d.PaymentIntentID, intent.ID)
		}
		if intent.RedirectURL == "" {
			t.Error("intent.RedirectURL is empty")
		}

		// nothing is counted before the payment resolves
		got, _ := deps.causeRepo.GetCauseByID(ctx, active.ID)
		if got.CurrentAmount != 0 || got.DonorCount != 0 {
			t.Errorf("aggregates moved on create: current=%d donors=%d", got.CurrentAmount, got.DonorCount)
		}
	})

	t.Run("anonymous donor is scrubbed", func(t *testing.T) {
		d, _, err := deps.svc.Create(ctx, donation.NewDonation{
			CauseID:     active.ID,
			DonorID:     "donor2",
			DonorName:   "Juma",
			DonorEmail:  "juma@test.cd",
			IsAnonymous: true,
			Amount:      20_00,
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if d.DonorID != "" || d.DonorEmail != "" {
			t.Errorf("donor identity kept: id=%q email=%q", d.DonorID, d.DonorEmail)
		}
		if d.DonorName != donation.AnonymousDonorName {
			t.Errorf("DonorName = %q; want %q", d.DonorName, donation.AnonymousDonorName)
		}
	})
}

func TestService_ProcessPayment(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	c := testutil.CreateCause(t, deps.causeRepo, "org1", "Burn treatment", 1_000_00, cause.StatusActive)
	d, intent, err := deps.svc.Create(ctx, donation.NewDonation{
		CauseID:    c.ID,
		DonorID:    "donor1",
		DonorEmail: "donor1@test.cd",
		Amount:     75_00,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	t.Run("unknown donation", func(t *testing.T) {
		if _, err := deps.svc.ProcessPayment(ctx, "nope", intent.ID); err != donation.ErrNotFound {
			t.Errorf("ProcessPayment() error = %v; want %v", err, donation.ErrNotFound)
		}
	})

	t.Run("intent mismatch", func(t *testing.T) {
		if _, err := deps.svc.ProcessPayment(ctx, d.ID, "other-intent"); err != donation.ErrNotFound {
			t.Errorf("ProcessPayment() error = %v; want %v", err, donation.ErrNotFound)
		}
	})

	t.Run("still pending leaves the donation alone", func(t *testing.T) {
		got, err := deps.svc.ProcessPayment(ctx, d.ID, intent.ID)
		if err != nil {
			t.Fatalf("ProcessPayment() failed: %v", err)
		}
		if got.Status != donation.StatusPendingPayment {
			t.Errorf("Status = %s; want %s", got.Status, donation.StatusPendingPayment)
		}
	})

	t.Run("completed counts exactly once", func(t *testing.T) {
		deps.gateway.ResolveIntent(intent.ID, core.IntentStatusCompleted)

		got, err := deps.svc.ProcessPayment(ctx, d.ID, intent.ID)
		if err != nil {
			t.Fatalf("ProcessPayment() failed: %v", err)
		}
		if got.Status != donation.StatusCompleted {
			t.Errorf("Status = %s; want %s", got.Status, donation.StatusCompleted)
		}

		cs, _ := deps.causeRepo.GetCauseByID(ctx, c.ID)
		if cs.CurrentAmount != 75_00 || cs.DonorCount != 1 || cs.AvailableForWithdrawal != 75_00 {
			t.Errorf("totals = %d/%d/%d; want 7500/1/7500", cs.CurrentAmount, cs.DonorCount, cs.AvailableForWithdrawal)
		}
		if n := len(deps.notifSvc.Sent()); n != 1 {
			t.Errorf("notifications = %d; want 1", n)
		}
		if n := len(deps.alerter.alerts); n != 1 {
			t.Errorf("alerts = %d; want 1", n)
		}

		// a redelivered callback is a no-op
		if _, err = deps.svc.ProcessPayment(ctx, d.ID, intent.ID); err != nil {
			t.Fatalf("ProcessPayment() failed: %v", err)
		}
		cs, _ = deps.causeRepo.GetCauseByID(ctx, c.ID)
		if cs.CurrentAmount != 75_00 || cs.DonorCount != 1 {
			t.Errorf("redelivery double counted: current=%d donors=%d", cs.CurrentAmount, cs.DonorCount)
		}
		if n := len(deps.notifSvc.Sent()); n != 1 {
			t.Errorf("notifications after redelivery = %d; want 1", n)
		}
		if n := len(deps.alerter.alerts); n != 1 {
			t.Errorf("alerts after redelivery = %d; want 1", n)
		}
	})
}

func TestService_ProcessPayment_statusMapping(t *testing.T) {
	tests := []struct {
		name         string
		intentStatus string
		want         string
	}{
		{name: "under review", intentStatus: core.IntentStatusPendingReview, want: donation.StatusPendingReview},
		{name: "failed", intentStatus: core.IntentStatusFailed, want: donation.StatusFailed},
		{name: "unknown degrades to failed", intentStatus: "weird_new_status", want: donation.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := setup(t)
			ctx := context.Background()

			c := testutil.CreateCause(t, deps.causeRepo, "org1", "Eye surgery", 1_000_00, cause.StatusActive)
			d, intent, err := deps.svc.Create(ctx, donation.NewDonation{CauseID: c.ID, Amount: 30_00})
			if err != nil {
				t.Fatalf("Create() failed: %v", err)
			}

			deps.gateway.ResolveIntent(intent.ID, tt.intentStatus)
			got, err := deps.svc.ProcessPayment(ctx, d.ID, intent.ID)
			if err != nil {
				t.Fatalf("ProcessPayment() failed: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("Status = %s; want %s", got.Status, tt.want)
			}

			cs, _ := deps.causeRepo.GetCauseByID(ctx, c.ID)
			if cs.CurrentAmount != 0 {
				t.Errorf("CurrentAmount = %d; want 0", cs.CurrentAmount)
			}
		})
	}
}

func TestService_MarkRefunded(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	c := testutil.CreateCause(t, deps.causeRepo, "org1", "Maternity care", 1_000_00, cause.StatusActive)
	d, intent, err := deps.svc.Create(ctx, donation.NewDonation{CauseID: c.ID, DonorID: "donor1", Amount: 40_00})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// a donation that never completed cannot be refunded
	if _, err = deps.svc.MarkRefunded(ctx, d.ID); err != donation.ErrNotRefundable {
		t.Errorf("MarkRefunded() error = %v; want %v", err, donation.ErrNotRefundable)
	}

	deps.gateway.ResolveIntent(intent.ID, core.IntentStatusCompleted)
	if _, err = deps.svc.ProcessPayment(ctx, d.ID, intent.ID); err != nil {
		t.Fatalf("ProcessPayment() failed: %v", err)
	}

	// once money has left the cause, refunds are locked
	deps.disbursements.disbursed = true
	if _, err = deps.svc.MarkRefunded(ctx, d.ID); err != donation.ErrRefundLocked {
		t.Errorf("MarkRefunded() error = %v; want %v", err, donation.ErrRefundLocked)
	}
	deps.disbursements.disbursed = false

	got, err := deps.svc.MarkRefunded(ctx, d.ID)
	if err != nil {
		t.Fatalf("MarkRefunded() failed: %v", err)
	}
	if got.Status != donation.StatusRefunded {
		t.Errorf("Status = %s; want %s", got.Status, donation.StatusRefunded)
	}

	cs, _ := deps.causeRepo.GetCauseByID(ctx, c.ID)
	if cs.CurrentAmount != 0 || cs.DonorCount != 0 || cs.AvailableForWithdrawal != 0 {
		t.Errorf("totals = %d/%d/%d; want 0/0/0", cs.CurrentAmount, cs.DonorCount, cs.AvailableForWithdrawal)
	}

	// refunding twice is refused
	if _, err = deps.svc.MarkRefunded(ctx, d.ID); err != donation.ErrNotRefundable {
		t.Errorf("MarkRefunded() error = %v; want %v", err, donation.ErrNotRefundable)
	}
}

// An approval landing after the refund's fast-fail check but before its locked
// recheck must not let the refund pull currentAmount below withdrawnAmount.
func TestService_MarkRefunded_approvalInDecisionWindow(t *testing.T) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	causeRepo := inmemdb.NewCauseRepository(db)
	donationRepo := inmemdb.NewDonationRepository(db)
	gateway := paymentsvc.NewDummyGateway()
	ldgr := ledger.New(causeRepo, donationRepo)
	ctx := context.Background()

	c := testutil.CreateCause(t, causeRepo, "org1", "Kidney transplant", 1_000_00, cause.StatusActive)
	disbursements := &withdrawingDisbursements{ledger: ldgr, causeID: c.ID, amount: 80_00}
	svc := donation.NewService(
		donationRepo,
		causeRepo,
		gateway,
		ldgr,
		disbursements,
		notifsvc.NewDummyService(),
		testutil.NopLogger{},
	)

	d, intent, err := svc.Create(ctx, donation.NewDonation{CauseID: c.ID, DonorID: "donor1", Amount: 100_00})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	gateway.ResolveIntent(intent.ID, core.IntentStatusCompleted)
	if _, err = svc.ProcessPayment(ctx, d.ID, intent.ID); err != nil {
		t.Fatalf("ProcessPayment() failed: %v", err)
	}

	if _, err = svc.MarkRefunded(ctx, d.ID); err != donation.ErrRefundLocked {
		t.Errorf("MarkRefunded() error = %v; want %v", err, donation.ErrRefundLocked)
	}

	got, err := donationRepo.GetDonationByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDonationByID() failed: %v", err)
	}
	if got.Status != donation.StatusCompleted {
		t.Errorf("Status = %s; want %s (refund must not have applied)", got.Status, donation.StatusCompleted)
	}

	cs, err := causeRepo.GetCauseByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCauseByID() failed: %v", err)
	}
	if cs.CurrentAmount != 100_00 || cs.WithdrawnAmount != 80_00 || cs.AvailableForWithdrawal != 20_00 {
		t.Errorf("totals = %d/%d/%d; want 10000/8000/2000",
			cs.CurrentAmount, cs.WithdrawnAmount, cs.AvailableForWithdrawal)
	}
	if cs.WithdrawnAmount > cs.CurrentAmount {
		t.Errorf("withdrawn %d exceeds current %d", cs.WithdrawnAmount, cs.CurrentAmount)
	}
}
