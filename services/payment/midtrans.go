// Package paymentsvc implements the payment gateway boundary.
package paymentsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core"
)

type midtransGateway struct {
	snap   snap.Client
	api    coreapi.Client
	logger core.Logger
}

var _ core.PaymentGateway = (*midtransGateway)(nil)

func NewMidtransGateway(conf *core.Config, logger core.Logger) core.PaymentGateway {
	env := midtrans.Sandbox
	if conf.Midtrans.Production {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(conf.Midtrans.ServerKey, env)

	var c coreapi.Client
	c.New(conf.Midtrans.ServerKey, env)

	return &midtransGateway{snap: s, api: c, logger: logger}
}

// CreateIntent opens a Snap transaction; the order id doubles as our payment
// intent id and is what the notification webhook echoes back.
func (gw *midtransGateway) CreateIntent(
	_ context.Context,
	amount int64,
	currency, description string,
	metadata map[string]string,
) (core.PaymentIntent, error) {
	orderID := fmt.Sprintf("DON-%d-%s", time.Now().Unix(), uuid.New().String()[:8])

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    "DONATION",
				Price: amount,
				Qty:   1,
				Name:  description,
			},
		},
		Metadata: metadata,
	}

	resp, err := gw.snap.CreateTransaction(req)
	if resp == nil {
		return core.PaymentIntent{}, errors.Wrapf(err, "creating snap transaction %s", orderID)
	}
	if err != nil {
		// midtrans returns a usable response alongside non-fatal errors
		gw.logger.Warn(fmt.Sprintf("snap transaction %s created with error: %v", orderID, err), err)
	}

	return core.PaymentIntent{
		ID:          orderID,
		Status:      core.IntentStatusPending,
		RedirectURL: resp.RedirectURL,
	}, nil
}

func (gw *midtransGateway) IntentStatus(_ context.Context, intentID string) (string, error) {
	resp, err := gw.api.CheckTransaction(intentID)
	if resp == nil {
		return "", core.ErrIntentNotFound
	}
	if err != nil {
		gw.logger.Warn(fmt.Sprintf("checking transaction %s returned error: %v", intentID, err), err)
	}
	if resp.StatusCode == "404" {
		return "", core.ErrIntentNotFound
	}
	return mapTransactionStatus(resp.TransactionStatus, resp.FraudStatus), nil
}

// mapTransactionStatus folds midtrans transaction/fraud statuses into the
// gateway status vocabulary. Money only moves on settlement or an accepted
// capture; a challenged capture goes to manual review.
func mapTransactionStatus(txStatus, fraudStatus string) string {
	switch txStatus {
	case "settlement":
		return core.IntentStatusCompleted
	case "capture":
		switch fraudStatus {
		case "accept":
			return core.IntentStatusCompleted
		case "challenge":
			return core.IntentStatusPendingReview
		default:
			return core.IntentStatusFailed
		}
	case "pending":
		return core.IntentStatusPending
	default: // deny, cancel, expire, failure, ...
		return core.IntentStatusFailed
	}
}
