// Package inmemdb provides in-memory repositories for tests and local dev.
package inmemdb

import (
	"sync"

	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/disbursement"
	"github.com/afyafund/afyafund/core/donation"
)

type (
	causeTable struct {
		mutex   sync.RWMutex
		table   map[string]*cause.Cause
		updates map[string]*cause.CauseUpdate
	}

	donationTable struct {
		mutex sync.RWMutex
		table map[string]*donation.Donation
	}

	disbursementTable struct {
		mutex sync.RWMutex
		table map[string]*disbursement.Disbursement
	}

	DB struct {
		cause        *causeTable
		donation     *donationTable
		disbursement *disbursementTable
	}
)

func Open() (*DB, error) {
	db := &DB{
		cause: &causeTable{
			table:   make(map[string]*cause.Cause),
			updates: make(map[string]*cause.CauseUpdate),
		},
		donation:     &donationTable{table: make(map[string]*donation.Donation)},
		disbursement: &disbursementTable{table: make(map[string]*disbursement.Disbursement)},
	}
	return db, nil
}
