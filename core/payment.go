package core

import (
	"context"

	"github.com/pkg/errors"
)

// Payment intent statuses, as resolved by the gateway.
const (
	IntentStatusPending       = "pending"
	IntentStatusCompleted     = "completed"
	IntentStatusPendingReview = "pending_review"
	IntentStatusFailed        = "failed"
)

var ErrIntentNotFound = errors.New("payment intent not found")

type (
	PaymentIntent struct {
		ID          string
		Status      string
		RedirectURL string // hosted payment page, when the gateway provides one
	}

	// PaymentGateway abstracts the external payment processor. Amounts are in
	// minor units of the given currency.
	PaymentGateway interface {
		CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (PaymentIntent, error)
		// IntentStatus returns the gateway's current status for the intent;
		// ErrIntentNotFound if the gateway does not know it.
		IntentStatus(ctx context.Context, intentID string) (string, error)
	}
)
