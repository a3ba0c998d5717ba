package cause

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core"
)

var (
	// errors
	ErrNotFound          = errors.New("cause not found")
	ErrInvalidTransition = errors.New("cause cannot change to the requested status")
	ErrAlreadyVerified   = errors.New("cause beneficiary is already verified")
)

type (
	Repository interface {
		CreateCause(ctx context.Context, c Cause) (Cause, error)
		GetCauseByID(ctx context.Context, id string) (Cause, error)
		// QueryCauses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Title, Description or BeneficiaryName.
		QueryCauses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Cause, error)
		// UpdateCause saves descriptive, status and verification fields.
		// It must never touch the aggregate fields.
		UpdateCause(ctx context.Context, c Cause) (Cause, error)
		TouchCauseLastUpdate(ctx context.Context, id string, at time.Time) error
		CreateCauseUpdate(ctx context.Context, cu CauseUpdate) (CauseUpdate, error)
		QueryCauseUpdates(ctx context.Context, causeID string, publicOnly bool) ([]CauseUpdate, error)
	}

	// DonorLister reports the distinct identified donors with at least one
	// completed donation on a cause. Satisfied by the donation repository.
	DonorLister interface {
		QueryCompletedDonors(ctx context.Context, causeID string) ([]Donor, error)
	}

	Service struct {
		repo     Repository
		donors   DonorLister
		notifSvc core.NotificationService
		logger   core.Logger
	}
)

func NewService(repo Repository, donors DonorLister, notifSvc core.NotificationService, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		donors:   donors,
		notifSvc: notifSvc,
		logger:   logger,
	}
}

func (svc *Service) Create(ctx context.Context, nc NewCause) (Cause, error) {
	now := time.Now().UTC()
	c := Cause{
		OrganizerID:     nc.OrganizerID,
		Title:           nc.Title,
		Description:     nc.Description,
		Category:        nc.Category,
		BeneficiaryName: nc.BeneficiaryName,
		GoalAmount:      nc.GoalAmount,
		Currency:        nc.Currency,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateCause(ctx, c)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Cause, error) {
	return svc.repo.GetCauseByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Cause, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCauses(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCause) (Cause, error) {
	c, err := svc.repo.GetCauseByID(ctx, id)
	if err != nil {
		return Cause{}, err
	}
	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.Description != "" {
		c.Description = uc.Description
	}
	if uc.Category != "" {
		c.Category = uc.Category
	}
	if uc.GoalAmount > 0 {
		c.GoalAmount = uc.GoalAmount
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCause(ctx, c)
}

// setStatus moves a cause through its lifecycle; ErrInvalidTransition when the
// move is not allowed from the cause's current status.
func (svc *Service) setStatus(ctx context.Context, id, status string) (Cause, error) {
	c, err := svc.repo.GetCauseByID(ctx, id)
	if err != nil {
		return Cause{}, err
	}
	if !CanTransition(c.Status, status) {
		return Cause{}, ErrInvalidTransition
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCause(ctx, c)
}

func (svc *Service) SubmitForVerification(ctx context.Context, id string) (Cause, error) {
	return svc.setStatus(ctx, id, StatusPendingVerification)
}

func (svc *Service) Activate(ctx context.Context, id string) (Cause, error) {
	return svc.setStatus(ctx, id, StatusActive)
}

func (svc *Service) Pause(ctx context.Context, id string) (Cause, error) {
	return svc.setStatus(ctx, id, StatusPaused)
}

func (svc *Service) Complete(ctx context.Context, id string) (Cause, error) {
	return svc.setStatus(ctx, id, StatusCompleted)
}

func (svc *Service) Cancel(ctx context.Context, id string) (Cause, error) {
	return svc.setStatus(ctx, id, StatusCancelled)
}

// VerifyBeneficiary records a one-time beneficiary verification by an
// authorized verifier and notifies the organizer.
func (svc *Service) VerifyBeneficiary(ctx context.Context, causeID, verifierID string, documents []string) (Cause, error) {
	c, err := svc.repo.GetCauseByID(ctx, causeID)
	if err != nil {
		return Cause{}, err
	}
	if c.IsVerified {
		return Cause{}, ErrAlreadyVerified
	}

	now := time.Now().UTC()
	c.IsVerified = true
	c.VerifiedAt = now
	c.VerifiedBy = verifierID
	c.VerificationDocuments = documents
	c.UpdatedAt = now

	c, err = svc.repo.UpdateCause(ctx, c)
	if err != nil {
		return Cause{}, err
	}

	svc.notifSvc.Send(&core.Notification{
		UserID:  c.OrganizerID,
		Type:    core.NotifTypeCauseVerified,
		Title:   "Beneficiary verified",
		Message: fmt.Sprintf("The beneficiary of %q has been verified.", c.Title),
		Data:    map[string]interface{}{"cause_id": c.ID},
	})
	return c, nil
}

// CreateUpdate appends a progress note to a cause. Public updates fan out to
// every distinct donor with a completed donation; fan-out failures are logged
// and never affect the posted update.
func (svc *Service) CreateUpdate(ctx context.Context, nu NewCauseUpdate) (CauseUpdate, error) {
	c, err := svc.repo.GetCauseByID(ctx, nu.CauseID)
	if err != nil {
		return CauseUpdate{}, err
	}

	now := time.Now().UTC()
	cu := CauseUpdate{
		CauseID:   c.ID,
		Title:     nu.Title,
		Content:   nu.Content,
		Type:      nu.Type,
		PostedBy:  nu.PostedBy,
		Images:    nu.Images,
		IsPublic:  nu.IsPublic,
		CreatedAt: now,
	}
	cu, err = svc.repo.CreateCauseUpdate(ctx, cu)
	if err != nil {
		return CauseUpdate{}, err
	}

	if err = svc.repo.TouchCauseLastUpdate(ctx, c.ID, now); err != nil {
		svc.logger.Warn(fmt.Sprintf("touching cause %s lastUpdateAt: %v", c.ID, err), err)
	}

	if cu.IsPublic {
		svc.fanOutUpdate(ctx, c, cu)
	}
	return cu, nil
}

func (svc *Service) QueryUpdates(ctx context.Context, causeID string, publicOnly bool) ([]CauseUpdate, error) {
	if _, err := svc.repo.GetCauseByID(ctx, causeID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCauseUpdates(ctx, causeID, publicOnly)
}

func (svc *Service) fanOutUpdate(ctx context.Context, c Cause, cu CauseUpdate) {
	donors, err := svc.donors.QueryCompletedDonors(ctx, c.ID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("listing donors for cause %s: %v", c.ID, err), err)
		return
	}

	notifs := make([]*core.Notification, 0, len(donors))
	for _, donor := range donors {
		notifs = append(notifs, &core.Notification{
			UserID:  donor.ID,
			Email:   donor.Email,
			Type:    core.NotifTypeCauseUpdate,
			Title:   fmt.Sprintf("Update on %s", c.Title),
			Message: cu.Title,
			Data:    map[string]interface{}{"cause_id": c.ID, "update_id": cu.ID},
		})
	}
	svc.notifSvc.Send(notifs...)
}
