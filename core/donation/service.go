package donation

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
)

var (
	// errors
	ErrNotFound       = errors.New("donation not found")
	ErrCauseNotActive = errors.New("cause is not accepting donations")
	ErrNotRefundable  = errors.New("only completed donations can be refunded")
	ErrRefundLocked   = errors.New("donation cannot be refunded after funds were disbursed")
)

type (
	Repository interface {
		CreateDonation(ctx context.Context, d Donation) (Donation, error)
		GetDonationByID(ctx context.Context, id string) (Donation, error)
		GetDonationByPaymentIntentID(ctx context.Context, intentID string) (Donation, error)
		// QueryDonationsByCause returns the cause's donations, optionally
		// restricted to the given statuses.
		QueryDonationsByCause(ctx context.Context, causeID string, statuses ...string) ([]Donation, error)
		UpdateDonationStatus(ctx context.Context, id, status string) (Donation, error)
	}

	// CauseGetter is satisfied by the cause repository.
	CauseGetter interface {
		GetCauseByID(ctx context.Context, id string) (cause.Cause, error)
	}

	// Reconciler recomputes a cause's aggregate totals from its records.
	Reconciler interface {
		Recompute(ctx context.Context, causeID string) (cause.Cause, error)
		// Refund runs apply against a freshly read cause and recomputes the
		// totals, all under the cause's lock.
		Refund(ctx context.Context, causeID string, apply func(ctx context.Context, c cause.Cause) error) (cause.Cause, error)
	}

	// DisbursementChecker reports whether any funds have left a cause.
	DisbursementChecker interface {
		HasDisbursed(ctx context.Context, causeID string) (bool, error)
	}

	// Alerter pushes live donation events to connected watchers, best-effort.
	Alerter interface {
		DonationCompleted(d Donation)
	}

	Service struct {
		repo          Repository
		causes        CauseGetter
		gateway       core.PaymentGateway
		ledger        Reconciler
		disbursements DisbursementChecker
		notifSvc      core.NotificationService
		logger        core.Logger
		alerter       Alerter // optional
	}
)

func NewService(
	repo Repository,
	causes CauseGetter,
	gateway core.PaymentGateway,
	ledger Reconciler,
	disbursements DisbursementChecker,
	notifSvc core.NotificationService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:          repo,
		causes:        causes,
		gateway:       gateway,
		ledger:        ledger,
		disbursements: disbursements,
		notifSvc:      notifSvc,
		logger:        logger,
	}
}

// WithAlerter attaches a live donation alerter (e.g. the websocket hub).
func (svc *Service) WithAlerter(alerter Alerter) *Service {
	svc.alerter = alerter
	return svc
}

// Create records a contribution attempt against an active cause and opens a
// payment intent for it. The donation starts in pending_payment and is not
// counted in any aggregate until the payment resolves.
func (svc *Service) Create(ctx context.Context, nd NewDonation) (Donation, core.PaymentIntent, error) {
	c, err := svc.causes.GetCauseByID(ctx, nd.CauseID)
	if err != nil {
		return Donation{}, core.PaymentIntent{}, err
	}
	if c.Status != cause.StatusActive {
		return Donation{}, core.PaymentIntent{}, ErrCauseNotActive
	}

	currency := nd.Currency
	if currency == "" {
		currency = c.Currency
	}

	intent, err := svc.gateway.CreateIntent(
		ctx,
		nd.Amount,
		currency,
		fmt.Sprintf("Donation to %s", c.Title),
		map[string]string{"cause_id": c.ID},
	)
	if err != nil {
		return Donation{}, core.PaymentIntent{}, errors.Wrap(err, "creating payment intent")
	}

	now := time.Now().UTC()
	d := Donation{
		CauseID:         c.ID,
		DonorID:         nd.DonorID,
		DonorName:       nd.DonorName,
		DonorEmail:      nd.DonorEmail,
		IsAnonymous:     nd.IsAnonymous,
		Amount:          nd.Amount,
		Currency:        currency,
		Message:         nd.Message,
		PaymentIntentID: intent.ID,
		Status:          StatusPendingPayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d.IsAnonymous {
		d.DonorID = ""
		d.DonorName = AnonymousDonorName
		d.DonorEmail = ""
	}

	d, err = svc.repo.CreateDonation(ctx, d)
	if err != nil {
		return Donation{}, core.PaymentIntent{}, err
	}
	return d, intent, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Donation, error) {
	return svc.repo.GetDonationByID(ctx, id)
}

func (svc *Service) GetByPaymentIntentID(ctx context.Context, intentID string) (Donation, error) {
	return svc.repo.GetDonationByPaymentIntentID(ctx, intentID)
}

func (svc *Service) QueryByCause(ctx context.Context, causeID string, statuses ...string) ([]Donation, error) {
	return svc.repo.QueryDonationsByCause(ctx, causeID, statuses...)
}

// ProcessPayment reconciles a donation against the gateway's resolved intent
// status. Safe to re-invoke: a donation already in a terminal status is
// returned unchanged, so redelivered gateway callbacks never double count.
func (svc *Service) ProcessPayment(ctx context.Context, donationID, intentID string) (Donation, error) {
	d, err := svc.repo.GetDonationByID(ctx, donationID)
	if err != nil {
		return Donation{}, err
	}
	if d.PaymentIntentID != intentID {
		return Donation{}, ErrNotFound
	}

	intentStatus, err := svc.gateway.IntentStatus(ctx, intentID)
	if err != nil {
		return Donation{}, err
	}

	if d.IsTerminal() {
		return d, nil
	}

	status := mapIntentStatus(intentStatus)
	if status == d.Status {
		return d, nil
	}

	d, err = svc.repo.UpdateDonationStatus(ctx, d.ID, status)
	if err != nil {
		return Donation{}, err
	}

	if d.Status != StatusCompleted {
		return d, nil
	}

	// The donation is final; a failed recomputation leaves a stale aggregate
	// that a reconciliation retry repairs, not a failed donation.
	if _, err = svc.ledger.Recompute(ctx, d.CauseID); err != nil {
		svc.logger.Error(fmt.Sprintf("recomputing totals for cause %s: %v", d.CauseID, err), err)
	}

	if d.DonorID != "" {
		svc.notifSvc.Send(&core.Notification{
			UserID:  d.DonorID,
			Email:   d.DonorEmail,
			Type:    core.NotifTypeDonationReceived,
			Title:   "Thank you for your donation",
			Message: fmt.Sprintf("Your donation of %d %s has been received.", d.Amount, d.Currency),
			Data:    map[string]interface{}{"donation_id": d.ID, "cause_id": d.CauseID},
		})
	}
	if svc.alerter != nil {
		svc.alerter.DonationCompleted(d)
	}
	return d, nil
}

// MarkRefunded flips a completed donation to refunded and recomputes the
// cause's totals. Refused once any funds have left the cause: a retroactive
// reduction of currentAmount below an already disbursed withdrawnAmount would
// break the no-overdraft invariant.
func (svc *Service) MarkRefunded(ctx context.Context, donationID string) (Donation, error) {
	d, err := svc.repo.GetDonationByID(ctx, donationID)
	if err != nil {
		return Donation{}, err
	}
	if d.Status != StatusCompleted {
		return Donation{}, ErrNotRefundable
	}

	// Fast-fail outside the lock; the authoritative check is the withdrawn
	// amount re-read under the cause's lock below, so an approval landing in
	// between cannot slip past.
	disbursed, err := svc.disbursements.HasDisbursed(ctx, d.CauseID)
	if err != nil {
		return Donation{}, errors.Wrap(err, "checking cause disbursements")
	}
	if disbursed {
		return Donation{}, ErrRefundLocked
	}

	_, err = svc.ledger.Refund(ctx, d.CauseID, func(ctx context.Context, c cause.Cause) error {
		if c.WithdrawnAmount > 0 {
			return ErrRefundLocked
		}
		var uerr error
		d, uerr = svc.repo.UpdateDonationStatus(ctx, d.ID, StatusRefunded)
		return uerr
	})
	if err != nil {
		return Donation{}, err
	}
	return d, nil
}

// mapIntentStatus maps a gateway intent status to a donation status.
// Unknown statuses degrade to failed; money is only ever counted on an
// explicit completion.
func mapIntentStatus(intentStatus string) string {
	switch intentStatus {
	case core.IntentStatusCompleted:
		return StatusCompleted
	case core.IntentStatusPendingReview:
		return StatusPendingReview
	case core.IntentStatusPending:
		return StatusPendingPayment
	default:
		return StatusFailed
	}
}
