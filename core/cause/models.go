package cause

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/afyafund/afyafund/core"
)

// Cause statuses
const (
	StatusDraft               = "draft"
	StatusPendingVerification = "pending_verification"
	StatusActive              = "active"
	StatusPaused              = "paused"
	StatusCompleted           = "completed"
	StatusCancelled           = "cancelled"
)

// transitions maps a cause status to the statuses it may move to.
// Verification is tracked separately and does not appear here.
var transitions = map[string][]string{
	StatusDraft:               {StatusPendingVerification, StatusCancelled},
	StatusPendingVerification: {StatusActive, StatusCancelled},
	StatusActive:              {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused:              {StatusActive, StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a cause may move from one status to another.
// Completed and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cause is a medical fundraising campaign.
//
// CurrentAmount, DonorCount, WithdrawnAmount and AvailableForWithdrawal are
// derived aggregates owned by the ledger; nothing else may write them.
// Amounts are in minor units of Currency.
type Cause struct {
	ID              string `json:"id"`
	OrganizerID     string `json:"organizer_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	BeneficiaryName string `json:"beneficiary_name"`
	GoalAmount      int64  `json:"goal_amount"`
	Currency        string `json:"currency"`

	CurrentAmount          int64 `json:"current_amount"`
	DonorCount             int   `json:"donor_count"`
	WithdrawnAmount        int64 `json:"withdrawn_amount"`
	AvailableForWithdrawal int64 `json:"available_for_withdrawal"`

	Status string `json:"status"`

	IsVerified            bool      `json:"is_verified"`
	VerifiedAt            time.Time `json:"verified_at,omitempty"`
	VerifiedBy            string    `json:"verified_by,omitempty"`
	VerificationDocuments []string  `json:"verification_documents,omitempty"`

	LastUpdateAt time.Time `json:"last_update_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Totals is the full set of aggregate fields written back to a cause record in
// a single update. It is produced only by the ledger.
type Totals struct {
	CurrentAmount          int64
	DonorCount             int
	WithdrawnAmount        int64
	AvailableForWithdrawal int64
}

// NewCause contains information needed to submit a new Cause.
type NewCause struct {
	OrganizerID     string `json:"organizer_id" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description" validate:"required"`
	Category        string `json:"category"`
	BeneficiaryName string `json:"beneficiary_name" validate:"required"`
	GoalAmount      int64  `json:"goal_amount" validate:"required,gt=0"`
	Currency        string `json:"currency" validate:"omitempty,currency"`
}

func (nc *NewCause) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.BeneficiaryName = core.CleanString(nc.BeneficiaryName)
	nc.Currency = core.CleanString(nc.Currency)
	return validate.Struct(nc)
}

// UpdateCause defines what descriptive information may be modified on an
// existing Cause. Aggregate and verification fields are off limits.
type UpdateCause struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	GoalAmount  int64  `json:"goal_amount" validate:"omitempty,gt=0"`
}

func (uc *UpdateCause) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

// CauseUpdate is an append-only progress note posted by the organizer.
type CauseUpdate struct {
	ID        string    `json:"id"`
	CauseID   string    `json:"cause_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	PostedBy  string    `json:"posted_by"`
	Images    []string  `json:"images,omitempty"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewCauseUpdate struct {
	CauseID  string   `json:"cause_id" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	Content  string   `json:"content" validate:"required"`
	Type     string   `json:"type"`
	PostedBy string   `json:"posted_by" validate:"required"`
	Images   []string `json:"images"`
	IsPublic bool     `json:"is_public"`
}

func (nu *NewCauseUpdate) Validate(validate *validator.Validate) error {
	nu.Title = core.CleanString(nu.Title)
	nu.Content = core.CleanString(nu.Content)
	return validate.Struct(nu)
}

// Donor identifies a distinct contributor to a cause, used for fan-out.
type Donor struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search       string    `query:"search"`
	Status       string    `query:"status"`
	Category     string    `query:"category"`
	OrganizerID  string    `query:"organizer_id"`
	VerifiedOnly bool      `query:"verified_only"`
	CreatedFrom  time.Time `query:"created_from"`
	CreatedTo    time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.Category == "" && qf.OrganizerID == "" &&
		!qf.VerifiedOnly && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
}
