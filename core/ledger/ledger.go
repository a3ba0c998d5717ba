// Package ledger owns every write of a cause's aggregate fields.
//
// Totals are always recomputed from the donation records rather than
// incremented, so a recomputation can be re-run safely after a partial
// failure or a concurrent donation completion. All aggregate writes for a
// given cause are serialized through a per-cause lock; the store only
// guarantees per-record atomicity, so the lock is what keeps the
// read-modify-write of a withdrawal from racing another one.
package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/donation"
)

var ErrInsufficientFunds = errors.New("amount exceeds the funds available for withdrawal")

type (
	CauseRepository interface {
		GetCauseByID(ctx context.Context, id string) (cause.Cause, error)
		// UpdateCauseTotals writes all aggregate fields in a single record update.
		UpdateCauseTotals(ctx context.Context, id string, totals cause.Totals) (cause.Cause, error)
	}

	DonationLister interface {
		QueryDonationsByCause(ctx context.Context, causeID string, statuses ...string) ([]donation.Donation, error)
	}

	Ledger struct {
		causes    CauseRepository
		donations DonationLister
		locks     keyedMutex
	}
)

func New(causes CauseRepository, donations DonationLister) *Ledger {
	return &Ledger{causes: causes, donations: donations}
}

// Recompute re-derives a cause's totals from its completed donations:
// currentAmount is their sum, donorCount the number of distinct identified
// donors, and availableForWithdrawal what remains after the withdrawn amount.
// Idempotent; re-running with no intervening writes yields the same totals.
func (l *Ledger) Recompute(ctx context.Context, causeID string) (cause.Cause, error) {
	defer l.locks.lock(causeID)()

	c, err := l.causes.GetCauseByID(ctx, causeID)
	if err != nil {
		return cause.Cause{}, err
	}
	return l.recompute(ctx, c)
}

// Refund reverses a donation's contribution to a cause's totals. It runs
// apply against a freshly read cause record and recomputes the totals, all
// under the cause's lock, so the refund decision cannot interleave with a
// withdrawal consuming the same funds. When apply errors nothing is written.
func (l *Ledger) Refund(ctx context.Context, causeID string, apply func(ctx context.Context, c cause.Cause) error) (cause.Cause, error) {
	defer l.locks.lock(causeID)()

	c, err := l.causes.GetCauseByID(ctx, causeID)
	if err != nil {
		return cause.Cause{}, err
	}
	if err = apply(ctx, c); err != nil {
		return cause.Cause{}, err
	}
	return l.recompute(ctx, c)
}

// recompute re-derives and writes the totals; the cause's lock must be held.
func (l *Ledger) recompute(ctx context.Context, c cause.Cause) (cause.Cause, error) {
	donations, err := l.donations.QueryDonationsByCause(ctx, c.ID, donation.StatusCompleted)
	if err != nil {
		return cause.Cause{}, errors.Wrap(err, "querying completed donations")
	}

	var current int64
	donors := make(map[string]struct{})
	for _, d := range donations {
		current += d.Amount
		if !d.IsAnonymous && d.DonorID != "" {
			donors[d.DonorID] = struct{}{}
		}
	}

	totals := cause.Totals{
		CurrentAmount:          current,
		DonorCount:             len(donors),
		WithdrawnAmount:        c.WithdrawnAmount,
		AvailableForWithdrawal: available(current, c.WithdrawnAmount),
	}
	return l.causes.UpdateCauseTotals(ctx, c.ID, totals)
}

// Withdraw consumes available funds for a disbursement. The availability
// check and the withdrawn-amount write happen under the cause's lock against
// a freshly read record, so funds can never be consumed twice.
func (l *Ledger) Withdraw(ctx context.Context, causeID string, amount int64) (cause.Cause, error) {
	defer l.locks.lock(causeID)()

	c, err := l.causes.GetCauseByID(ctx, causeID)
	if err != nil {
		return cause.Cause{}, err
	}
	if amount > c.AvailableForWithdrawal {
		return cause.Cause{}, ErrInsufficientFunds
	}

	withdrawn := c.WithdrawnAmount + amount
	totals := cause.Totals{
		CurrentAmount:          c.CurrentAmount,
		DonorCount:             c.DonorCount,
		WithdrawnAmount:        withdrawn,
		AvailableForWithdrawal: available(c.CurrentAmount, withdrawn),
	}
	return l.causes.UpdateCauseTotals(ctx, causeID, totals)
}

func available(current, withdrawn int64) int64 {
	if withdrawn >= current {
		return 0
	}
	return current - withdrawn
}

// keyedMutex serializes work per key. Mutexes are kept for the life of the
// process; the key space is bounded by the number of causes.
type keyedMutex struct {
	mus sync.Map // map[string]*sync.Mutex
}

func (km *keyedMutex) lock(key string) (unlock func()) {
	mu, _ := km.mus.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
