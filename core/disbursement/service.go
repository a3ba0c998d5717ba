package disbursement

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/ledger"
)

var (
	// errors
	ErrNotFound   = errors.New("disbursement not found")
	ErrNotPending = errors.New("disbursement has already been processed")
)

type (
	Repository interface {
		CreateDisbursement(ctx context.Context, d Disbursement) (Disbursement, error)
		GetDisbursementByID(ctx context.Context, id string) (Disbursement, error)
		// QueryDisbursementsByCause returns the cause's disbursements,
		// optionally restricted to the given statuses.
		QueryDisbursementsByCause(ctx context.Context, causeID string, statuses ...string) ([]Disbursement, error)
		UpdateDisbursement(ctx context.Context, d Disbursement) (Disbursement, error)
	}

	// CauseGetter is satisfied by the cause repository.
	CauseGetter interface {
		GetCauseByID(ctx context.Context, id string) (cause.Cause, error)
	}

	// FundsWithdrawer consumes available funds under the cause's ledger lock.
	FundsWithdrawer interface {
		Withdraw(ctx context.Context, causeID string, amount int64) (cause.Cause, error)
	}

	Service struct {
		repo       Repository
		causes     CauseGetter
		ledger     FundsWithdrawer
		notifSvc   core.NotificationService
		logger     core.Logger
		adminEmail string
	}
)

func NewService(
	repo Repository,
	causes CauseGetter,
	withdrawer FundsWithdrawer,
	notifSvc core.NotificationService,
	logger core.Logger,
	adminEmail string,
) *Service {
	return &Service{
		repo:       repo,
		causes:     causes,
		ledger:     withdrawer,
		notifSvc:   notifSvc,
		logger:     logger,
		adminEmail: adminEmail,
	}
}

// Request opens a pending withdrawal request. The availability check here is
// a fast-fail courtesy; the authoritative check happens again at approval
// time against the cause's then-current funds.
func (svc *Service) Request(ctx context.Context, nd NewDisbursement) (Disbursement, error) {
	c, err := svc.causes.GetCauseByID(ctx, nd.CauseID)
	if err != nil {
		return Disbursement{}, err
	}
	if nd.Amount > c.AvailableForWithdrawal {
		return Disbursement{}, ledger.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	d := Disbursement{
		CauseID:     c.ID,
		Amount:      nd.Amount,
		Purpose:     nd.Purpose,
		RequestedBy: nd.RequestedBy,
		Documents:   nd.Documents,
		BankDetails: nd.BankDetails,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d, err = svc.repo.CreateDisbursement(ctx, d)
	if err != nil {
		return Disbursement{}, err
	}

	svc.notifSvc.Send(&core.Notification{
		Email:   svc.adminEmail,
		Type:    core.NotifTypeDisbursementRequested,
		Title:   "Disbursement requested",
		Message: fmt.Sprintf("A withdrawal of %d %s was requested for %q.", d.Amount, c.Currency, c.Title),
		Data:    map[string]interface{}{"disbursement_id": d.ID, "cause_id": c.ID},
	})
	return d, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Disbursement, error) {
	return svc.repo.GetDisbursementByID(ctx, id)
}

func (svc *Service) QueryByCause(ctx context.Context, causeID string, statuses ...string) ([]Disbursement, error) {
	return svc.repo.QueryDisbursementsByCause(ctx, causeID, statuses...)
}

// HasDisbursed reports whether any funds have been paid out for a cause.
func (svc *Service) HasDisbursed(ctx context.Context, causeID string) (bool, error) {
	disbursed, err := svc.repo.QueryDisbursementsByCause(ctx, causeID, StatusDisbursed)
	if err != nil {
		return false, err
	}
	return len(disbursed) > 0, nil
}

// Process resolves a pending request. Approval consumes funds through the
// ledger, which re-reads the cause's availability under its lock, then marks
// the disbursement paid out. Approval disburses immediately; there is no
// separate approved-but-unpaid state.
func (svc *Service) Process(ctx context.Context, id string, pd ProcessDisbursement) (Disbursement, error) {
	d, err := svc.repo.GetDisbursementByID(ctx, id)
	if err != nil {
		return Disbursement{}, err
	}
	if d.Status != StatusPending {
		return Disbursement{}, ErrNotPending
	}

	if pd.Action == ActionReject {
		return svc.reject(ctx, d, pd)
	}
	return svc.approve(ctx, d, pd)
}

func (svc *Service) reject(ctx context.Context, d Disbursement, pd ProcessDisbursement) (Disbursement, error) {
	d.Status = StatusRejected
	d.RejectionReason = pd.RejectionReason
	d.ProcessedBy = pd.ProcessedBy
	d.UpdatedAt = time.Now().UTC()

	d, err := svc.repo.UpdateDisbursement(ctx, d)
	if err != nil {
		return Disbursement{}, err
	}

	svc.notifSvc.Send(&core.Notification{
		UserID:  d.RequestedBy,
		Type:    core.NotifTypeDisbursementProcessed,
		Title:   "Disbursement rejected",
		Message: fmt.Sprintf("Your withdrawal request was rejected: %s", d.RejectionReason),
		Data:    map[string]interface{}{"disbursement_id": d.ID, "cause_id": d.CauseID},
	})
	return d, nil
}

func (svc *Service) approve(ctx context.Context, d Disbursement, pd ProcessDisbursement) (Disbursement, error) {
	if _, err := svc.ledger.Withdraw(ctx, d.CauseID, d.Amount); err != nil {
		return Disbursement{}, err
	}

	now := time.Now().UTC()
	d.Status = StatusDisbursed
	d.ProcessedBy = pd.ProcessedBy
	d.TransactionReference = pd.TransactionReference
	d.DisbursedAt = now
	d.UpdatedAt = now

	updated, err := svc.repo.UpdateDisbursement(ctx, d)
	if err != nil {
		// Funds were consumed but the record write failed; an operator must
		// reconcile the disbursement by hand.
		svc.logger.Error(fmt.Sprintf("funds withdrawn for cause %s but disbursement %s not marked disbursed: %v", d.CauseID, d.ID, err), err)
		return Disbursement{}, errors.Wrap(err, "funds withdrawn but disbursement record not updated")
	}
	d = updated

	svc.notifSvc.Send(&core.Notification{
		UserID:  d.RequestedBy,
		Type:    core.NotifTypeDisbursementProcessed,
		Title:   "Disbursement approved",
		Message: fmt.Sprintf("Your withdrawal of %d has been disbursed (ref %s).", d.Amount, d.TransactionReference),
		Data:    map[string]interface{}{"disbursement_id": d.ID, "cause_id": d.CauseID},
	})
	return d, nil
}
