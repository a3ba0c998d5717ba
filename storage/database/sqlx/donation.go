package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/donation"
)

type donationRepository struct {
	db *sqlx.DB
}

var _ donation.Repository = (*donationRepository)(nil) // interface compliance check
var _ cause.DonorLister = (*donationRepository)(nil)

func NewDonationRepository(db *sqlx.DB) *donationRepository {
	return &donationRepository{db: db}
}

type donationRow struct {
	ID              string      `db:"id"`
	CauseID         string      `db:"cause_id"`
	DonorID         null.String `db:"donor_id"`
	DonorName       null.String `db:"donor_name"`
	DonorEmail      null.String `db:"donor_email"`
	IsAnonymous     bool        `db:"is_anonymous"`
	Amount          int64       `db:"amount"`
	Currency        string      `db:"currency"`
	Message         string      `db:"message"`
	PaymentIntentID string      `db:"payment_intent_id"`
	Status          string      `db:"status"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (repo donationRepository) row(d donation.Donation) donationRow {
	return donationRow{
		ID:              d.ID,
		CauseID:         d.CauseID,
		DonorID:         null.NewString(d.DonorID, d.DonorID != ""),
		DonorName:       null.NewString(d.DonorName, d.DonorName != ""),
		DonorEmail:      null.NewString(d.DonorEmail, d.DonorEmail != ""),
		IsAnonymous:     d.IsAnonymous,
		Amount:          d.Amount,
		Currency:        d.Currency,
		Message:         d.Message,
		PaymentIntentID: d.PaymentIntentID,
		Status:          d.Status,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

func (repo donationRepository) unrow(r donationRow) donation.Donation {
	return donation.Donation{
		ID:              r.ID,
		CauseID:         r.CauseID,
		DonorID:         r.DonorID.String,
		DonorName:       r.DonorName.String,
		DonorEmail:      r.DonorEmail.String,
		IsAnonymous:     r.IsAnonymous,
		Amount:          r.Amount,
		Currency:        strings.TrimSpace(r.Currency),
		Message:         r.Message,
		PaymentIntentID: r.PaymentIntentID,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to donation.ErrNotFound
func (repo donationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return donation.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo donationRepository) CreateDonation(ctx context.Context, d donation.Donation) (donation.Donation, error) {
	d.ID = uuid.New().String()
	r := repo.row(d)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO donation (id, cause_id, donor_id, donor_name, donor_email, is_anonymous, amount, currency,
		                      message, payment_intent_id, status, created_at, updated_at)
		VALUES (:id, :cause_id, :donor_id, :donor_name, :donor_email, :is_anonymous, :amount, :currency,
		        :message, :payment_intent_id, :status, :created_at, :updated_at)`,
		r,
	)
	if err != nil {
		return donation.Donation{}, errors.Wrap(err, "inserting donation")
	}
	return repo.unrow(r), nil
}

func (repo donationRepository) GetDonationByID(ctx context.Context, id string) (donation.Donation, error) {
	var r donationRow
	if err := repo.db.GetContext(ctx, &r, "SELECT * FROM donation WHERE id = $1", id); err != nil {
		return donation.Donation{}, repo.trapNoRowsErr(err, "getting donation")
	}
	return repo.unrow(r), nil
}

func (repo donationRepository) GetDonationByPaymentIntentID(ctx context.Context, intentID string) (donation.Donation, error) {
	var r donationRow
	if err := repo.db.GetContext(ctx, &r, "SELECT * FROM donation WHERE payment_intent_id = $1", intentID); err != nil {
		return donation.Donation{}, repo.trapNoRowsErr(err, "getting donation by intent")
	}
	return repo.unrow(r), nil
}

func (repo donationRepository) QueryDonationsByCause(ctx context.Context, causeID string, statuses ...string) ([]donation.Donation, error) {
	query := "SELECT * FROM donation WHERE cause_id = $1"
	args := []interface{}{causeID}
	if len(statuses) > 0 {
		query += " AND status = ANY($2)"
		args = append(args, pq.Array(statuses))
	}
	query += " ORDER BY created_at DESC"

	var rows []donationRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying donations")
	}

	donations := make([]donation.Donation, 0, len(rows))
	for _, r := range rows {
		donations = append(donations, repo.unrow(r))
	}
	return donations, nil
}

func (repo donationRepository) UpdateDonationStatus(ctx context.Context, id, status string) (donation.Donation, error) {
	var r donationRow
	err := repo.db.GetContext(ctx, &r, `
		UPDATE donation SET status = $2, updated_at = $3 WHERE id = $1 RETURNING *`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return donation.Donation{}, repo.trapNoRowsErr(err, "updating donation status")
	}
	return repo.unrow(r), nil
}

// QueryCompletedDonors lists the distinct identified donors with at least one
// completed donation on the cause.
func (repo donationRepository) QueryCompletedDonors(ctx context.Context, causeID string) ([]cause.Donor, error) {
	var rows []struct {
		DonorID    string      `db:"donor_id"`
		DonorEmail null.String `db:"donor_email"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT donor_id, donor_email
		FROM donation
		WHERE cause_id = $1 AND status = $2 AND NOT is_anonymous AND donor_id IS NOT NULL`,
		causeID, donation.StatusCompleted,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying completed donors")
	}

	donors := make([]cause.Donor, 0, len(rows))
	for _, r := range rows {
		donors = append(donors, cause.Donor{ID: r.DonorID, Email: r.DonorEmail.String})
	}
	return donors, nil
}
