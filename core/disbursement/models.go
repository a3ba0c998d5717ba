package disbursement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/afyafund/afyafund/core"
)

// Disbursement statuses. StatusApproved is never written by the current flow
// (approval pays out immediately, landing on StatusDisbursed); it remains part
// of the status vocabulary accepted by query filters.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusDisbursed = "disbursed"
)

// Process actions
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// BankDetails is where approved funds are paid out to.
type BankDetails struct {
	AccountName   string `json:"account_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required"`
	BankName      string `json:"bank_name" validate:"required"`
	BranchCode    string `json:"branch_code"`
}

// Disbursement is a withdrawal request against a cause's available funds.
// Amount is in minor units of the cause's currency.
type Disbursement struct {
	ID          string      `json:"id"`
	CauseID     string      `json:"cause_id"`
	Amount      int64       `json:"amount"`
	Purpose     string      `json:"purpose"`
	RequestedBy string      `json:"requested_by"`
	Documents   []string    `json:"documents,omitempty"`
	BankDetails BankDetails `json:"bank_details"`

	Status               string    `json:"status"`
	RejectionReason      string    `json:"rejection_reason,omitempty"`
	ProcessedBy          string    `json:"processed_by,omitempty"`
	TransactionReference string    `json:"transaction_reference,omitempty"`
	DisbursedAt          time.Time `json:"disbursed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewDisbursement contains information needed to request a withdrawal.
type NewDisbursement struct {
	CauseID     string      `json:"cause_id" validate:"required"`
	Amount      int64       `json:"amount" validate:"required,gt=0"`
	Purpose     string      `json:"purpose" validate:"required"`
	RequestedBy string      `json:"requested_by" validate:"required"`
	Documents   []string    `json:"documents"`
	BankDetails BankDetails `json:"bank_details" validate:"required"`
}

func (nd *NewDisbursement) Validate(validate *validator.Validate) error {
	nd.Purpose = core.CleanString(nd.Purpose)
	return validate.Struct(nd)
}

// ProcessDisbursement is an admin decision on a pending request.
type ProcessDisbursement struct {
	Action               string `json:"action" validate:"required,oneof=approve reject"`
	ProcessedBy          string `json:"processed_by" validate:"required"`
	RejectionReason      string `json:"rejection_reason" validate:"required_if=Action reject"`
	TransactionReference string `json:"transaction_reference"`
}

func (pd *ProcessDisbursement) Validate(validate *validator.Validate) error {
	pd.Action = core.CleanString(pd.Action, true /* lower */)
	pd.RejectionReason = core.CleanString(pd.RejectionReason)
	return validate.Struct(pd)
}
