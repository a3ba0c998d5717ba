package paymentsvc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/afyafund/afyafund/core"
)

// DummyGateway is a programmable in-memory gateway for tests and local dev.
// Created intents start pending; tests resolve them with ResolveIntent.
type DummyGateway struct {
	mu       sync.Mutex
	statuses map[string]string

	CreatedIntents []core.PaymentIntent
	CreateErr      error // returned by the next CreateIntent call, if set
}

var _ core.PaymentGateway = (*DummyGateway)(nil)

func NewDummyGateway() *DummyGateway {
	return &DummyGateway{statuses: make(map[string]string)}
}

func (gw *DummyGateway) CreateIntent(
	_ context.Context,
	amount int64,
	currency, description string,
	metadata map[string]string,
) (core.PaymentIntent, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.CreateErr != nil {
		err := gw.CreateErr
		gw.CreateErr = nil
		return core.PaymentIntent{}, err
	}

	intent := core.PaymentIntent{
		ID:          uuid.New().String(),
		Status:      core.IntentStatusPending,
		RedirectURL: "https://pay.example.com/" + uuid.New().String(),
	}
	gw.statuses[intent.ID] = intent.Status
	gw.CreatedIntents = append(gw.CreatedIntents, intent)
	return intent, nil
}

func (gw *DummyGateway) IntentStatus(_ context.Context, intentID string) (string, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	status, ok := gw.statuses[intentID]
	if !ok {
		return "", core.ErrIntentNotFound
	}
	return status, nil
}

// ResolveIntent sets the gateway-side status an intent will report.
func (gw *DummyGateway) ResolveIntent(intentID, status string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.statuses[intentID] = status
}
