package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
)

type causeRepository struct {
	db *causeTable
}

var _ cause.Repository = (*causeRepository)(nil)

func NewCauseRepository(db *DB) *causeRepository {
	return &causeRepository{db: db.cause}
}

func (repo *causeRepository) query() []cause.Cause {
	causes := make([]cause.Cause, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		causes = append(causes, *c)
	}
	return causes
}

func (repo *causeRepository) CreateCause(_ context.Context, c cause.Cause) (cause.Cause, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = uuid.New().String()
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *causeRepository) GetCauseByID(_ context.Context, id string) (cause.Cause, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return cause.Cause{}, cause.ErrNotFound
}

func (repo *causeRepository) QueryCauses(_ context.Context, filter *cause.QueryFilter, _ []core.DBOrdering) ([]cause.Cause, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	causes := repo.query()
	if filter != nil && !filter.IsEmpty() {
		matched := causes[:0]
		for _, c := range causes {
			if matchesFilter(c, filter) {
				matched = append(matched, c)
			}
		}
		causes = matched
	}
	sort.Slice(causes, func(i, j int) bool { return causes[i].CreatedAt.After(causes[j].CreatedAt) })
	return causes, nil
}

func matchesFilter(c cause.Cause, filter *cause.QueryFilter) bool {
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(c.Title), kw) &&
			!strings.Contains(strings.ToLower(c.Description), kw) &&
			!strings.Contains(strings.ToLower(c.BeneficiaryName), kw) {
			return false
		}
	}
	if filter.Status != "" && c.Status != filter.Status {
		return false
	}
	if filter.Category != "" && !strings.EqualFold(c.Category, filter.Category) {
		return false
	}
	if filter.OrganizerID != "" && c.OrganizerID != filter.OrganizerID {
		return false
	}
	if filter.VerifiedOnly && !c.IsVerified {
		return false
	}
	if !filter.CreatedFrom.IsZero() && c.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && c.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *causeRepository) UpdateCause(_ context.Context, c cause.Cause) (cause.Cause, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return cause.Cause{}, cause.ErrNotFound
	}

	// aggregate fields are preserved from the stored record
	orig.Title = c.Title
	orig.Description = c.Description
	orig.Category = c.Category
	orig.BeneficiaryName = c.BeneficiaryName
	orig.GoalAmount = c.GoalAmount
	orig.Status = c.Status
	orig.IsVerified = c.IsVerified
	orig.VerifiedAt = c.VerifiedAt
	orig.VerifiedBy = c.VerifiedBy
	orig.VerificationDocuments = c.VerificationDocuments
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

func (repo *causeRepository) UpdateCauseTotals(_ context.Context, id string, totals cause.Totals) (cause.Cause, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c, ok := repo.db.table[id]
	if !ok {
		return cause.Cause{}, cause.ErrNotFound
	}
	c.CurrentAmount = totals.CurrentAmount
	c.DonorCount = totals.DonorCount
	c.WithdrawnAmount = totals.WithdrawnAmount
	c.AvailableForWithdrawal = totals.AvailableForWithdrawal
	c.UpdatedAt = time.Now().UTC()
	return *c, nil
}

func (repo *causeRepository) TouchCauseLastUpdate(_ context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c, ok := repo.db.table[id]
	if !ok {
		return cause.ErrNotFound
	}
	c.LastUpdateAt = at
	return nil
}

func (repo *causeRepository) CreateCauseUpdate(_ context.Context, cu cause.CauseUpdate) (cause.CauseUpdate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cu.ID = uuid.New().String()
	repo.db.updates[cu.ID] = &cu
	return cu, nil
}

func (repo *causeRepository) QueryCauseUpdates(_ context.Context, causeID string, publicOnly bool) ([]cause.CauseUpdate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	updates := make([]cause.CauseUpdate, 0)
	for _, cu := range repo.db.updates {
		if cu.CauseID != causeID {
			continue
		}
		if publicOnly && !cu.IsPublic {
			continue
		}
		updates = append(updates, *cu)
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].CreatedAt.After(updates[j].CreatedAt) })
	return updates, nil
}
