package reimbursement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Store(ctx context.Context, reimbursement Reimbursement) (int, error)
	FindById(ctx context.Context, id int) (Reimbursement, error)
	// FindByExpense returns the reimbursement tied to an expense, if any.
	FindByExpense(ctx context.Context, expenseId int) (Reimbursement, error)
	// UpdateAmount changes a pending reimbursement's amount. Paid records are
	// frozen and yield ErrConflict.
	UpdateAmount(ctx context.Context, id int, amount decimal.Decimal) error
	// MarkPaid performs the pending-to-paid transition with an optimistic
	// guard: a record that is already paid yields ErrConflict.
	MarkPaid(ctx context.Context, id int, at time.Time) error
	// Revert moves a paid record back to pending, clearing the timestamp.
	Revert(ctx context.Context, id int) error
	List(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error)
}

const reimbursementColumns = `r.id, r.uid, r.expense_id, r.requested_by, u.display_name, r.amount::text,
				r.is_reimbursed, r.reimbursed_at, r.created_at, e.amount::text, e.department`

const reimbursementPageColumns = reimbursementColumns + `,
				COUNT(*) OVER() AS total,
				COALESCE(SUM(r.amount) OVER(), 0)::text AS total_amount,
				COUNT(*) FILTER (WHERE r.is_reimbursed) OVER() AS paid_count,
				COALESCE(SUM(r.amount) FILTER (WHERE r.is_reimbursed) OVER(), 0)::text AS paid_amount`

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Store(ctx context.Context, reimbursement Reimbursement) (int, error) {
	query := `INSERT INTO reimbursements (
					uid,
					expense_id,
					requested_by,
					amount,
					is_reimbursed
				) VALUES ($1, $2, $3, $4, FALSE) RETURNING id`
	var id int
	err := r.db.QueryRow(ctx, query,
		reimbursement.Uid,
		reimbursement.ExpenseID,
		reimbursement.RequestedBy,
		reimbursement.Amount.String(),
	).Scan(&id)
	if err != nil {
		err := fmt.Errorf("could not store reimbursement: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) FindById(ctx context.Context, id int) (Reimbursement, error) {
	query := fmt.Sprintf(`SELECT %s
				FROM reimbursements r
				JOIN users u ON u.id = r.requested_by
				JOIN expenses e ON e.id = r.expense_id
				WHERE r.id = $1`, reimbursementColumns)
	reimbursement, err := scanReimbursement(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reimbursement{}, apperr.NotFound("reimbursement %d", id)
	} else if err != nil {
		log.Errorf("could not find reimbursement %d: %v", id, err)
		return Reimbursement{}, err
	}
	return reimbursement, nil
}

func (r *RepositoryImpl) FindByExpense(ctx context.Context, expenseId int) (Reimbursement, error) {
	query := fmt.Sprintf(`SELECT %s
				FROM reimbursements r
				JOIN users u ON u.id = r.requested_by
				JOIN expenses e ON e.id = r.expense_id
				WHERE r.expense_id = $1`, reimbursementColumns)
	reimbursement, err := scanReimbursement(r.db.QueryRow(ctx, query, expenseId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reimbursement{}, apperr.NotFound("reimbursement for expense %d", expenseId)
	} else if err != nil {
		log.Errorf("could not find reimbursement for expense %d: %v", expenseId, err)
		return Reimbursement{}, err
	}
	return reimbursement, nil
}

func (r *RepositoryImpl) UpdateAmount(ctx context.Context, id int, amount decimal.Decimal) error {
	query := `UPDATE reimbursements SET amount = $1 WHERE id = $2 AND is_reimbursed = FALSE`
	result, err := r.db.Exec(ctx, query, amount.String(), id)
	if err != nil {
		err := fmt.Errorf("could not update reimbursement amount: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return r.missingOrPaid(ctx, id)
	}
	return nil
}

func (r *RepositoryImpl) MarkPaid(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE reimbursements SET is_reimbursed = TRUE, reimbursed_at = $1
				WHERE id = $2 AND is_reimbursed = FALSE`
	result, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		err := fmt.Errorf("could not settle reimbursement: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return r.missingOrPaid(ctx, id)
	}
	return nil
}

func (r *RepositoryImpl) Revert(ctx context.Context, id int) error {
	query := `UPDATE reimbursements SET is_reimbursed = FALSE, reimbursed_at = NULL WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		err := fmt.Errorf("could not revert reimbursement: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("reimbursement %d", id)
	}
	return nil
}

// missingOrPaid disambiguates a zero-row conditional update: the record is
// either absent or already paid.
func (r *RepositoryImpl) missingOrPaid(ctx context.Context, id int) error {
	var isReimbursed bool
	err := r.db.QueryRow(ctx, `SELECT is_reimbursed FROM reimbursements WHERE id = $1`, id).Scan(&isReimbursed)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("reimbursement %d", id)
	} else if err != nil {
		return err
	}
	return apperr.Conflict("reimbursement %d is already paid", id)
}

func (r *RepositoryImpl) List(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	conditions := []string{"TRUE"}
	args := []any{}

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filters.RequesterName != "" {
		addCondition("u.display_name ILIKE '%%' || $%d || '%%'", filters.RequesterName)
	}
	if filters.RequestedBy != 0 {
		addCondition("r.requested_by = $%d", filters.RequestedBy)
	}
	if filters.Location != "" {
		addCondition("u.location = $%d", filters.Location)
	}
	if filters.IsReimbursed != nil {
		addCondition("r.is_reimbursed = $%d", *filters.IsReimbursed)
	}
	if filters.Month != 0 {
		addCondition("e.month = $%d", filters.Month)
	}
	if filters.Year != 0 {
		addCondition("e.year = $%d", filters.Year)
	}
	if filters.MinAmount != nil {
		addCondition("r.amount >= $%d", filters.MinAmount.String())
	}
	if filters.MaxAmount != nil {
		addCondition("r.amount <= $%d", filters.MaxAmount.String())
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s
				FROM reimbursements r
				JOIN users u ON u.id = r.requested_by
				JOIN expenses e ON e.id = r.expense_id
				WHERE %s
				ORDER BY r.created_at DESC, r.id DESC
				LIMIT $%d OFFSET $%d`,
		reimbursementPageColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not list reimbursements: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	defer rows.Close()
	return scanReimbursementPage(rows)
}

func scanReimbursement(row pgx.Row) (Reimbursement, error) {
	var reimbursement Reimbursement
	var amount, expenseAmount string
	if err := row.Scan(
		&reimbursement.ID,
		&reimbursement.Uid,
		&reimbursement.ExpenseID,
		&reimbursement.RequestedBy,
		&reimbursement.RequesterName,
		&amount,
		&reimbursement.IsReimbursed,
		&reimbursement.ReimbursedAt,
		&reimbursement.CreatedAt,
		&expenseAmount,
		&reimbursement.ExpenseDepartment,
	); err != nil {
		return Reimbursement{}, err
	}
	return withAmounts(reimbursement, amount, expenseAmount)
}

func scanReimbursementPage(rows pgx.Rows) (PageResult, error) {
	result := PageResult{
		Items: []Reimbursement{},
		Stats: Stats{
			TotalAmount:   decimal.Zero,
			PaidAmount:    decimal.Zero,
			PendingAmount: decimal.Zero,
		},
	}
	for rows.Next() {
		var reimbursement Reimbursement
		var amount, expenseAmount, totalAmount, paidAmount string
		if err := rows.Scan(
			&reimbursement.ID,
			&reimbursement.Uid,
			&reimbursement.ExpenseID,
			&reimbursement.RequestedBy,
			&reimbursement.RequesterName,
			&amount,
			&reimbursement.IsReimbursed,
			&reimbursement.ReimbursedAt,
			&reimbursement.CreatedAt,
			&expenseAmount,
			&reimbursement.ExpenseDepartment,
			&result.Total,
			&totalAmount,
			&result.Stats.PaidCount,
			&paidAmount,
		); err != nil {
			err := fmt.Errorf("could not scan reimbursement: %w", err)
			log.Error(err)
			return PageResult{}, err
		}
		reimbursement, err := withAmounts(reimbursement, amount, expenseAmount)
		if err != nil {
			return PageResult{}, err
		}
		if result.Stats.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
			return PageResult{}, err
		}
		if result.Stats.PaidAmount, err = decimal.NewFromString(paidAmount); err != nil {
			return PageResult{}, err
		}
		result.Items = append(result.Items, reimbursement)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	result.Stats.Count = result.Total
	result.Stats.PendingCount = result.Stats.Count - result.Stats.PaidCount
	result.Stats.PendingAmount = result.Stats.TotalAmount.Sub(result.Stats.PaidAmount)
	return result, nil
}

func withAmounts(reimbursement Reimbursement, amount string, expenseAmount string) (Reimbursement, error) {
	var err error
	if reimbursement.Amount, err = decimal.NewFromString(amount); err != nil {
		return Reimbursement{}, fmt.Errorf("could not parse amount: %w", err)
	}
	if reimbursement.ExpenseAmount, err = decimal.NewFromString(expenseAmount); err != nil {
		return Reimbursement{}, fmt.Errorf("could not parse expense amount: %w", err)
	}
	return reimbursement, nil
}
