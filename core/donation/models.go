package donation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/afyafund/afyafund/core"
)

// Donation statuses
const (
	StatusPendingPayment = "pending_payment"
	StatusPendingReview  = "pending_review"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusRefunded       = "refunded"
)

// AnonymousDonorName replaces the donor's name on anonymous donations.
const AnonymousDonorName = "Anonymous"

// Donation is a single contribution attempt bound to a payment intent.
// Amount is in minor units of Currency.
type Donation struct {
	ID              string    `json:"id"`
	CauseID         string    `json:"cause_id"`
	DonorID         string    `json:"donor_id,omitempty"`
	DonorName       string    `json:"donor_name,omitempty"`
	DonorEmail      string    `json:"donor_email,omitempty"`
	IsAnonymous     bool      `json:"is_anonymous"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Message         string    `json:"message,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// IsTerminal reports whether the donation has reached a final status.
// Reconciling a terminal donation again is a no-op. A donation under review
// is not terminal: the gateway may still resolve it either way.
func (d Donation) IsTerminal() bool {
	switch d.Status {
	case StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// NewDonation contains information needed to record a new contribution attempt.
type NewDonation struct {
	CauseID     string `json:"cause_id" validate:"required"`
	DonorID     string `json:"donor_id"`
	DonorName   string `json:"donor_name"`
	DonorEmail  string `json:"donor_email" validate:"omitempty,email"`
	IsAnonymous bool   `json:"is_anonymous"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"omitempty,currency"`
	Message     string `json:"message"`
}

func (nd *NewDonation) Validate(validate *validator.Validate) error {
	nd.DonorName = core.CleanString(nd.DonorName)
	nd.DonorEmail = core.CleanString(nd.DonorEmail, true /* lower */)
	nd.Currency = core.CleanString(nd.Currency)
	nd.Message = core.CleanString(nd.Message)
	return validate.Struct(nd)
}
