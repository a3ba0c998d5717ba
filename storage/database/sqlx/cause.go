package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
)

type causeRepository struct {
	db *sqlx.DB
}

var _ cause.Repository = (*causeRepository)(nil) // interface compliance check

func NewCauseRepository(db *sqlx.DB) *causeRepository {
	return &causeRepository{db: db}
}

type causeRow struct {
	ID                     string         `db:"id"`
	OrganizerID            string         `db:"organizer_id"`
	Title                  string         `db:"title"`
	Description            string         `db:"description"`
	Category               string         `db:"category"`
	BeneficiaryName        string         `db:"beneficiary_name"`
	GoalAmount             int64          `db:"goal_amount"`
	Currency               string         `db:"currency"`
	CurrentAmount          int64          `db:"current_amount"`
	DonorCount             int            `db:"donor_count"`
	WithdrawnAmount        int64          `db:"withdrawn_amount"`
	AvailableForWithdrawal int64          `db:"available_for_withdrawal"`
	Status                 string         `db:"status"`
	IsVerified             bool           `db:"is_verified"`
	VerifiedAt             null.Time      `db:"verified_at"`
	VerifiedBy             null.String    `db:"verified_by"`
	VerificationDocuments  pq.StringArray `db:"verification_documents"`
	LastUpdateAt           null.Time      `db:"last_update_at"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

func (repo causeRepository) row(c cause.Cause) causeRow {
	return causeRow{
		ID:                     c.ID,
		OrganizerID:            c.OrganizerID,
		Title:                  c.Title,
		Description:            c.Description,
		Category:               c.Category,
		BeneficiaryName:        c.BeneficiaryName,
		GoalAmount:             c.GoalAmount,
		Currency:               c.Currency,
		CurrentAmount:          c.CurrentAmount,
		DonorCount:             c.DonorCount,
		WithdrawnAmount:        c.WithdrawnAmount,
		AvailableForWithdrawal: c.AvailableForWithdrawal,
		Status:                 c.Status,
		IsVerified:             c.IsVerified,
		VerifiedAt:             null.NewTime(c.VerifiedAt.UTC(), !c.VerifiedAt.IsZero()),
		VerifiedBy:             null.NewString(c.VerifiedBy, c.VerifiedBy != ""),
		VerificationDocuments:  c.VerificationDocuments,
		LastUpdateAt:           null.NewTime(c.LastUpdateAt.UTC(), !c.LastUpdateAt.IsZero()),
		CreatedAt:              c.CreatedAt.UTC(),
		UpdatedAt:              c.UpdatedAt.UTC(),
	}
}

func (repo causeRepository) unrow(r causeRow) cause.Cause {
	return cause.Cause{
		ID:                     r.ID,
		OrganizerID:            r.OrganizerID,
		Title:                  r.Title,
		Description:            r.Description,
		Category:               r.Category,
		BeneficiaryName:        r.BeneficiaryName,
		GoalAmount:             r.GoalAmount,
		Currency:               strings.TrimSpace(r.Currency),
		CurrentAmount:          r.CurrentAmount,
		DonorCount:             r.DonorCount,
		WithdrawnAmount:        r.WithdrawnAmount,
		AvailableForWithdrawal: r.AvailableForWithdrawal,
		Status:                 r.Status,
		IsVerified:             r.IsVerified,
		VerifiedAt:             r.VerifiedAt.Time,
		VerifiedBy:             r.VerifiedBy.String,
		VerificationDocuments:  r.VerificationDocuments,
		LastUpdateAt:           r.LastUpdateAt.Time,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to cause.ErrNotFound
func (repo causeRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return cause.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo causeRepository) CreateCause(ctx context.Context, c cause.Cause) (cause.Cause, error) {
	c.ID = uuid.New().String()
	r := repo.row(c)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO cause (id, organizer_id, title, description, category, beneficiary_name, goal_amount, currency,
		                   current_amount, donor_count, withdrawn_amount, available_for_withdrawal, status,
		                   is_verified, verified_at, verified_by, verification_documents, last_update_at,
		                   created_at, updated_at)
		VALUES (:id, :organizer_id, :title, :description, :category, :beneficiary_name, :goal_amount, :currency,
		        :current_amount, :donor_count, :withdrawn_amount, :available_for_withdrawal, :status,
		        :is_verified, :verified_at, :verified_by, :verification_documents, :last_update_at,
		        :created_at, :updated_at)`,
		r,
	)
	if err != nil {
		return cause.Cause{}, errors.Wrap(err, "inserting cause")
	}
	return repo.unrow(r), nil
}

func (repo causeRepository) GetCauseByID(ctx context.Context, id string) (cause.Cause, error) {
	var r causeRow
	if err := repo.db.GetContext(ctx, &r, "SELECT * FROM cause WHERE id = $1", id); err != nil {
		return cause.Cause{}, repo.trapNoRowsErr(err, "getting cause")
	}
	return repo.unrow(r), nil
}

func (repo causeRepository) QueryCauses(ctx context.Context, filter *cause.QueryFilter, ordering []core.DBOrdering) ([]cause.Cause, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s OR beneficiary_name ILIKE %[1]s)", p))
		}
		if filter.Status != "" {
			conds = append(conds, "status = "+arg(filter.Status))
		}
		if filter.Category != "" {
			conds = append(conds, "category = "+arg(filter.Category))
		}
		if filter.OrganizerID != "" {
			conds = append(conds, "organizer_id = "+arg(filter.OrganizerID))
		}
		if filter.VerifiedOnly {
			conds = append(conds, "is_verified")
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	query := "SELECT * FROM cause"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		ords := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			ords = append(ords, ord.String())
		}
		query += " ORDER BY " + strings.Join(ords, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	var rows []causeRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying causes")
	}

	causes := make([]cause.Cause, 0, len(rows))
	for _, r := range rows {
		causes = append(causes, repo.unrow(r))
	}
	return causes, nil
}

// UpdateCause saves descriptive, status and verification fields; the
// aggregate columns are deliberately absent from the column list.
func (repo causeRepository) UpdateCause(ctx context.Context, c cause.Cause) (cause.Cause, error) {
	r := repo.row(c)
	var updated causeRow
	err := repo.db.GetContext(ctx, &updated, `
		UPDATE cause
		SET title                  = $2,
		    description            = $3,
		    category               = $4,
		    beneficiary_name       = $5,
		    goal_amount            = $6,
		    status                 = $7,
		    is_verified            = $8,
		    verified_at            = $9,
		    verified_by            = $10,
		    verification_documents = $11,
		    updated_at             = $12
		WHERE id = $1
		RETURNING *`,
		r.ID, r.Title, r.Description, r.Category, r.BeneficiaryName, r.GoalAmount, r.Status,
		r.IsVerified, r.VerifiedAt, r.VerifiedBy, r.VerificationDocuments, r.UpdatedAt,
	)
	if err != nil {
		return cause.Cause{}, repo.trapNoRowsErr(err, "updating cause")
	}
	return repo.unrow(updated), nil
}

// UpdateCauseTotals writes all four aggregate fields in one record update.
func (repo causeRepository) UpdateCauseTotals(ctx context.Context, id string, totals cause.Totals) (cause.Cause, error) {
	var updated causeRow
	err := repo.db.GetContext(ctx, &updated, `
		UPDATE cause
		SET current_amount           = $2,
		    donor_count              = $3,
		    withdrawn_amount         = $4,
		    available_for_withdrawal = $5,
		    updated_at               = $6
		WHERE id = $1
		RETURNING *`,
		id, totals.CurrentAmount, totals.DonorCount, totals.WithdrawnAmount, totals.AvailableForWithdrawal,
		time.Now().UTC(),
	)
	if err != nil {
		return cause.Cause{}, repo.trapNoRowsErr(err, "updating cause totals")
	}
	return repo.unrow(updated), nil
}

func (repo causeRepository) TouchCauseLastUpdate(ctx context.Context, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE cause SET last_update_at = $2 WHERE id = $1", id, at.UTC())
	if err != nil {
		return errors.Wrap(err, "touching cause last_update_at")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cause.ErrNotFound
	}
	return nil
}

type causeUpdateRow struct {
	ID        string         `db:"id"`
	CauseID   string         `db:"cause_id"`
	Title     string         `db:"title"`
	Content   string         `db:"content"`
	Type      string         `db:"type"`
	PostedBy  string         `db:"posted_by"`
	Images    pq.StringArray `db:"images"`
	IsPublic  bool           `db:"is_public"`
	CreatedAt time.Time      `db:"created_at"`
}

func (repo causeRepository) CreateCauseUpdate(ctx context.Context, cu cause.CauseUpdate) (cause.CauseUpdate, error) {
	cu.ID = uuid.New().String()
	r := causeUpdateRow{
		ID:        cu.ID,
		CauseID:   cu.CauseID,
		Title:     cu.Title,
		Content:   cu.Content,
		Type:      cu.Type,
		PostedBy:  cu.PostedBy,
		Images:    cu.Images,
		IsPublic:  cu.IsPublic,
		CreatedAt: cu.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO cause_update (id, cause_id, title, content, type, posted_by, images, is_public, created_at)
		VALUES (:id, :cause_id, :title, :content, :type, :posted_by, :images, :is_public, :created_at)`,
		r,
	)
	if err != nil {
		return cause.CauseUpdate{}, errors.Wrap(err, "inserting cause update")
	}
	return cu, nil
}

func (repo causeRepository) QueryCauseUpdates(ctx context.Context, causeID string, publicOnly bool) ([]cause.CauseUpdate, error) {
	query := "SELECT * FROM cause_update WHERE cause_id = $1"
	if publicOnly {
		query += " AND is_public"
	}
	query += " ORDER BY created_at DESC"

	var rows []causeUpdateRow
	if err := repo.db.SelectContext(ctx, &rows, query, causeID); err != nil {
		return nil, errors.Wrap(err, "querying cause updates")
	}

	updates := make([]cause.CauseUpdate, 0, len(rows))
	for _, r := range rows {
		updates = append(updates, cause.CauseUpdate{
			ID:        r.ID,
			CauseID:   r.CauseID,
			Title:     r.Title,
			Content:   r.Content,
			Type:      r.Type,
			PostedBy:  r.PostedBy,
			Images:    r.Images,
			IsPublic:  r.IsPublic,
			CreatedAt: r.CreatedAt,
		})
	}
	return updates, nil
}
