package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/afyafund/afyafund/core/disbursement"
)

type disbursementRepository struct {
	db *sqlx.DB
}

var _ disbursement.Repository = (*disbursementRepository)(nil) // interface compliance check

func NewDisbursementRepository(db *sqlx.DB) *disbursementRepository {
	return &disbursementRepository{db: db}
}

type disbursementRow struct {
	ID                   string         `db:"id"`
	CauseID              string         `db:"cause_id"`
	Amount               int64          `db:"amount"`
	Purpose              string         `db:"purpose"`
	RequestedBy          string         `db:"requested_by"`
	Documents            pq.StringArray `db:"documents"`
	BankAccountName      string         `db:"bank_account_name"`
	BankAccountNumber    string         `db:"bank_account_number"`
	BankName             string         `db:"bank_name"`
	BankBranchCode       string         `db:"bank_branch_code"`
	Status               string         `db:"status"`
	RejectionReason      null.String    `db:"rejection_reason"`
	ProcessedBy          null.String    `db:"processed_by"`
	TransactionReference null.String    `db:"transaction_reference"`
	DisbursedAt          null.Time      `db:"disbursed_at"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

func (repo disbursementRepository) row(d disbursement.Disbursement) disbursementRow {
	return disbursementRow{
		ID:                   d.ID,
		CauseID:              d.CauseID,
		Amount:               d.Amount,
		Purpose:              d.Purpose,
		RequestedBy:          d.RequestedBy,
		Documents:            d.Documents,
		BankAccountName:      d.BankDetails.AccountName,
		BankAccountNumber:    d.BankDetails.AccountNumber,
		BankName:             d.BankDetails.BankName,
		BankBranchCode:       d.BankDetails.BranchCode,
		Status:               d.Status,
		RejectionReason:      null.NewString(d.RejectionReason, d.RejectionReason != ""),
		ProcessedBy:          null.NewString(d.ProcessedBy, d.ProcessedBy != ""),
		TransactionReference: null.NewString(d.TransactionReference, d.TransactionReference != ""),
		DisbursedAt:          null.NewTime(d.DisbursedAt.UTC(), !d.DisbursedAt.IsZero()),
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
	}
}

func (repo disbursementRepository) unrow(r disbursementRow) disbursement.Disbursement {
	return disbursement.Disbursement{
		ID:          r.ID,
		CauseID:     r.CauseID,
		Amount:      r.Amount,
		Purpose:     r.Purpose,
		RequestedBy: r.RequestedBy,
		Documents:   r.Documents,
		BankDetails: disbursement.BankDetails{
			AccountName:   r.BankAccountName,
			AccountNumber: r.BankAccountNumber,
			BankName:      r.BankName,
			BranchCode:    r.BankBranchCode,
		},
		Status:               r.Status,
		RejectionReason:      r.RejectionReason.String,
		ProcessedBy:          r.ProcessedBy.String,
		TransactionReference: r.TransactionReference.String,
		DisbursedAt:          r.DisbursedAt.Time,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to disbursement.ErrNotFound
func (repo disbursementRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return disbursement.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo disbursementRepository) CreateDisbursement(ctx context.Context, d disbursement.Disbursement) (disbursement.Disbursement, error) {
	d.ID = uuid.New().String()
	r := repo.row(d)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO disbursement (id, cause_id, amount, purpose, requested_by, documents,
		                          bank_account_name, bank_account_number, bank_name, bank_branch_code,
		                          status, rejection_reason, processed_by, transaction_reference, disbursed_at,
		                          created_at, updated_at)
		VALUES (:id, :cause_id, :amount, :purpose, :requested_by, :documents,
		        :bank_account_name, :bank_account_number, :bank_name, :bank_branch_code,
		        :status, :rejection_reason, :processed_by, :transaction_reference, :disbursed_at,
		        :created_at, :updated_at)`,
		r,
	)
	if err != nil {
		return disbursement.Disbursement{}, errors.Wrap(err, "inserting disbursement")
	}
	return repo.unrow(r), nil
}

func (repo disbursementRepository) GetDisbursementByID(ctx context.Context, id string) (disbursement.Disbursement, error) {
	var r disbursementRow
	if err := repo.db.GetContext(ctx, &r, "SELECT * FROM disbursement WHERE id = $1", id); err != nil {
		return disbursement.Disbursement{}, repo.trapNoRowsErr(err, "getting disbursement")
	}
	return repo.unrow(r), nil
}

func (repo disbursementRepository) QueryDisbursementsByCause(ctx context.Context, causeID string, statuses ...string) ([]disbursement.Disbursement, error) {
	query := "SELECT * FROM disbursement WHERE cause_id = $1"
	args := []interface{}{causeID}
	if len(statuses) > 0 {
		query += " AND status = ANY($2)"
		args = append(args, pq.Array(statuses))
	}
	query += " ORDER BY created_at DESC"

	var rows []disbursementRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying disbursements")
	}

	disbursements := make([]disbursement.Disbursement, 0, len(rows))
	for _, r := range rows {
		disbursements = append(disbursements, repo.unrow(r))
	}
	return disbursements, nil
}

func (repo disbursementRepository) UpdateDisbursement(ctx context.Context, d disbursement.Disbursement) (disbursement.Disbursement, error) {
	r := repo.row(d)
	var updated disbursementRow
	err := repo.db.GetContext(ctx, &updated, `
		UPDATE disbursement
		SET status                = $2,
		    rejection_reason      = $3,
		    processed_by          = $4,
		    transaction_reference = $5,
		    disbursed_at          = $6,
		    updated_at            = $7
		WHERE id = $1
		RETURNING *`,
		r.ID, r.Status, r.RejectionReason, r.ProcessedBy, r.TransactionReference, r.DisbursedAt, r.UpdatedAt,
	)
	if err != nil {
		return disbursement.Disbursement{}, repo.trapNoRowsErr(err, "updating disbursement")
	}
	return repo.unrow(updated), nil
}
