package paymentsvc

import (
	"testing"

	"github.com/afyafund/afyafund/core"
)

func Test_mapTransactionStatus(t *testing.T) {
	tests := []struct {
		name        string
		txStatus    string
		fraudStatus string
		want        string
	}{
		{name: "settlement", txStatus: "settlement", want: core.IntentStatusCompleted},
		{name: "capture accepted", txStatus: "capture", fraudStatus: "accept", want: core.IntentStatusCompleted},
		{name: "capture challenged", txStatus: "capture", fraudStatus: "challenge", want: core.IntentStatusPendingReview},
		{name: "capture denied", txStatus: "capture", fraudStatus: "deny", want: core.IntentStatusFailed},
		{name: "pending", txStatus: "pending", want: core.IntentStatusPending},
		{name: "deny", txStatus: "deny", want: core.IntentStatusFailed},
		{name: "cancel", txStatus: "cancel", want: core.IntentStatusFailed},
		{name: "expire", txStatus: "expire", want: core.IntentStatusFailed},
		{name: "unknown fails closed", txStatus: "some_new_status", want: core.IntentStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapTransactionStatus(tt.txStatus, tt.fraudStatus); got != tt.want {
				t.Errorf("mapTransactionStatus() = %s; want %s", got, tt.want)
			}
		})
	}
}
