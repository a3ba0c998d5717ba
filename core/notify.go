package core

// Notification types
const (
	NotifTypeCauseVerified         = "cause_verified"
	NotifTypeDonationReceived      = "donation_received"
	NotifTypeDisbursementRequested = "disbursement_requested"
	NotifTypeDisbursementProcessed = "disbursement_processed"
	NotifTypeCauseUpdate           = "cause_update"
)

type (
	Notification struct {
		UserID  string
		Email   string // delivery address, when known
		Type    string
		Title   string
		Message string
		Data    map[string]interface{}
	}

	// NotificationService delivers user notifications asynchronously, best-effort.
	// Delivery failures must never propagate to the caller.
	NotificationService interface {
		Send(notifications ...*Notification)
	}
)
