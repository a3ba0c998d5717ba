package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/afyafund/afyafund/core/disbursement"
)

type disbursementRepository struct {
	db *disbursementTable
}

var _ disbursement.Repository = (*disbursementRepository)(nil)

func NewDisbursementRepository(db *DB) *disbursementRepository {
	return &disbursementRepository{db: db.disbursement}
}

func (repo *disbursementRepository) CreateDisbursement(_ context.Context, d disbursement.Disbursement) (disbursement.Disbursement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	d.ID = uuid.New().String()
	repo.db.table[d.ID] = &d
	return d, nil
}

func (repo *disbursementRepository) GetDisbursementByID(_ context.Context, id string) (disbursement.Disbursement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.table[id]; ok {
		return *d, nil
	}
	return disbursement.Disbursement{}, disbursement.ErrNotFound
}

func (repo *disbursementRepository) QueryDisbursementsByCause(_ context.Context, causeID string, statuses ...string) ([]disbursement.Disbursement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	disbursements := make([]disbursement.Disbursement, 0)
	for _, d := range repo.db.table {
		if d.CauseID != causeID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, d.Status) {
			continue
		}
		disbursements = append(disbursements, *d)
	}
	sort.Slice(disbursements, func(i, j int) bool {
		return disbursements[i].CreatedAt.After(disbursements[j].CreatedAt)
	})
	return disbursements, nil
}

func (repo *disbursementRepository) UpdateDisbursement(_ context.Context, d disbursement.Disbursement) (disbursement.Disbursement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[d.ID]; !ok {
		return disbursement.Disbursement{}, disbursement.ErrNotFound
	}
	repo.db.table[d.ID] = &d
	return d, nil
}
