package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/donation"
)

type donationRepository struct {
	db *donationTable
}

var _ donation.Repository = (*donationRepository)(nil)
var _ cause.DonorLister = (*donationRepository)(nil)

func NewDonationRepository(db *DB) *donationRepository {
	return &donationRepository{db: db.donation}
}

func (repo *donationRepository) CreateDonation(_ context.Context, d donation.Donation) (donation.Donation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	d.ID = uuid.New().String()
	repo.db.table[d.ID] = &d
	return d, nil
}

func (repo *donationRepository) GetDonationByID(_ context.Context, id string) (donation.Donation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.table[id]; ok {
		return *d, nil
	}
	return donation.Donation{}, donation.ErrNotFound
}

func (repo *donationRepository) GetDonationByPaymentIntentID(_ context.Context, intentID string) (donation.Donation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, d := range repo.db.table {
		if d.PaymentIntentID == intentID {
			return *d, nil
		}
	}
	return donation.Donation{}, donation.ErrNotFound
}

func (repo *donationRepository) QueryDonationsByCause(_ context.Context, causeID string, statuses ...string) ([]donation.Donation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	donations := make([]donation.Donation, 0)
	for _, d := range repo.db.table {
		if d.CauseID != causeID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, d.Status) {
			continue
		}
		donations = append(donations, *d)
	}
	sort.Slice(donations, func(i, j int) bool { return donations[i].CreatedAt.After(donations[j].CreatedAt) })
	return donations, nil
}

func (repo *donationRepository) UpdateDonationStatus(_ context.Context, id, status string) (donation.Donation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	d, ok := repo.db.table[id]
	if !ok {
		return donation.Donation{}, donation.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return *d, nil
}

func (repo *donationRepository) QueryCompletedDonors(_ context.Context, causeID string) ([]cause.Donor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]struct{})
	donors := make([]cause.Donor, 0)
	for _, d := range repo.db.table {
		if d.CauseID != causeID || d.Status != donation.StatusCompleted || d.IsAnonymous || d.DonorID == "" {
			continue
		}
		if _, ok := seen[d.DonorID]; ok {
			continue
		}
		seen[d.DonorID] = struct{}{}
		donors = append(donors, cause.Donor{ID: d.DonorID, Email: d.DonorEmail})
	}
	return donors, nil
}

func contains(vals []string, val string) bool {
	for _, v := range vals {
		if v == val {
			return true
		}
	}
	return false
}
