package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ExpenseRepo interface {
	// StoreWithDebit inserts the expense and increments the budget's spent
	// amount by the expense's FromAllocation portion in one transaction.
	// Either both land or neither does. A budgetId of 0 means no budget was
	// matched and only the insert happens.
	StoreWithDebit(ctx context.Context, expense Expense, budgetId int) (int, error)
	FindById(ctx context.Context, id int) (Expense, error)
	Update(ctx context.Context, expense Expense) error
	ListPaginated(ctx context.Context, page int, limit int) (PageResult, error)
	Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error)
}

const expenseColumns = `e.id, e.uid, e.user_id, u.display_name, e.amount::text, e.from_allocation::text,
				e.from_reimbursement::text, e.department, e.sub_department, e.month, e.year,
				e.is_approved, e.is_reimbursed, e.proof_ref, e.created_at`

const expensePageColumns = expenseColumns + `,
				COUNT(*) OVER() AS total,
				COALESCE(SUM(e.amount) OVER(), 0)::text AS total_amount,
				COALESCE(SUM(e.from_reimbursement) OVER(), 0)::text AS total_reimbursable`

type ExpenseRepoImpl struct {
	db *pgxpool.Pool
}

func NewExpenseRepo(db *pgxpool.Pool) *ExpenseRepoImpl {
	return &ExpenseRepoImpl{db: db}
}

func (r *ExpenseRepoImpl) StoreWithDebit(ctx context.Context, expense Expense, budgetId int) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `INSERT INTO expenses (
					uid,
					user_id,
					amount,
					from_allocation,
					from_reimbursement,
					department,
					sub_department,
					month,
					year,
					is_approved,
					is_reimbursed,
					proof_ref
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	var id int
	err = tx.QueryRow(ctx, insert,
		expense.Uid,
		expense.OwnerID,
		expense.Amount.String(),
		expense.FromAllocation.String(),
		expense.FromReimbursement.String(),
		expense.Department,
		expense.SubDepartment,
		expense.Month,
		expense.Year,
		expense.IsApproved,
		expense.IsReimbursed,
		expense.ProofRef,
	).Scan(&id)
	if err != nil {
		err := fmt.Errorf("could not store expense: %w", err)
		log.Error(err)
		return 0, err
	}

	if budgetId != 0 && expense.FromAllocation.IsPositive() {
		// Server-side increment: concurrent expense submissions against the
		// same budget serialize on the row, no read-modify-write.
		debit := `UPDATE budgets SET spent_amount = spent_amount + $1 WHERE id = $2`
		result, err := tx.Exec(ctx, debit, expense.FromAllocation.String(), budgetId)
		if err != nil {
			err := fmt.Errorf("could not debit budget %d: %w", budgetId, err)
			log.Error(err)
			return 0, err
		}
		if result.RowsAffected() == 0 {
			return 0, apperr.NotFound("budget %d", budgetId)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("could not commit expense: %w", err)
	}
	return id, nil
}

func (r *ExpenseRepoImpl) FindById(ctx context.Context, id int) (Expense, error) {
	query := fmt.Sprintf(`SELECT %s
				FROM expenses e JOIN users u ON u.id = e.user_id
				WHERE e.id = $1`, expenseColumns)
	expense, err := scanExpense(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, apperr.NotFound("expense %d", id)
	} else if err != nil {
		log.Errorf("could not find expense %d: %v", id, err)
		return Expense{}, err
	}
	return expense, nil
}

func (r *ExpenseRepoImpl) Update(ctx context.Context, expense Expense) error {
	query := `UPDATE expenses SET
				  department = $1,
				  sub_department = $2,
				  is_approved = $3,
				  is_reimbursed = $4
			  WHERE id = $5`
	result, err := r.db.Exec(ctx, query,
		expense.Department,
		expense.SubDepartment,
		expense.IsApproved,
		expense.IsReimbursed,
		expense.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not update expense: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("expense %d", expense.ID)
	}
	return nil
}

func (r *ExpenseRepoImpl) ListPaginated(ctx context.Context, page int, limit int) (PageResult, error) {
	query := fmt.Sprintf(`SELECT %s
				FROM expenses e JOIN users u ON u.id = e.user_id
				ORDER BY e.created_at DESC, e.id DESC
				LIMIT $1 OFFSET $2`, expensePageColumns)
	rows, err := r.db.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		err := fmt.Errorf("could not query expenses: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	defer rows.Close()
	return scanExpensePage(rows)
}

func (r *ExpenseRepoImpl) Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	conditions := []string{"TRUE"}
	args := []any{}

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filters.Payee != "" {
		addCondition("u.display_name ILIKE '%%' || $%d || '%%'", filters.Payee)
	}
	if filters.Department != "" {
		addCondition("e.department = $%d", filters.Department)
	}
	if filters.Month != 0 {
		addCondition("e.month = $%d", filters.Month)
	}
	if filters.Year != 0 {
		addCondition("e.year = $%d", filters.Year)
	}
	if filters.IsApproved != nil {
		addCondition("e.is_approved = $%d", *filters.IsApproved)
	}
	if filters.IsReimbursed != nil {
		addCondition("e.is_reimbursed = $%d", *filters.IsReimbursed)
	}
	if filters.MinAmount != nil {
		addCondition("e.amount >= $%d", filters.MinAmount.String())
	}
	if filters.MaxAmount != nil {
		addCondition("e.amount <= $%d", filters.MaxAmount.String())
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s
				FROM expenses e JOIN users u ON u.id = e.user_id
				WHERE %s
				ORDER BY e.created_at DESC, e.id DESC
				LIMIT $%d OFFSET $%d`,
		expensePageColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not search expenses: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	defer rows.Close()
	return scanExpensePage(rows)
}

func scanExpense(row pgx.Row) (Expense, error) {
	var expense Expense
	var amount, fromAllocation, fromReimbursement string
	if err := row.Scan(
		&expense.ID,
		&expense.Uid,
		&expense.OwnerID,
		&expense.OwnerName,
		&amount,
		&fromAllocation,
		&fromReimbursement,
		&expense.Department,
		&expense.SubDepartment,
		&expense.Month,
		&expense.Year,
		&expense.IsApproved,
		&expense.IsReimbursed,
		&expense.ProofRef,
		&expense.CreatedAt,
	); err != nil {
		return Expense{}, err
	}
	return withAmounts(expense, amount, fromAllocation, fromReimbursement)
}

func scanExpensePage(rows pgx.Rows) (PageResult, error) {
	result := PageResult{
		Items:             []Expense{},
		TotalAmount:       decimal.Zero,
		TotalReimbursable: decimal.Zero,
	}
	for rows.Next() {
		var expense Expense
		var amount, fromAllocation, fromReimbursement, totalAmount, totalReimbursable string
		if err := rows.Scan(
			&expense.ID,
			&expense.Uid,
			&expense.OwnerID,
			&expense.OwnerName,
			&amount,
			&fromAllocation,
			&fromReimbursement,
			&expense.Department,
			&expense.SubDepartment,
			&expense.Month,
			&expense.Year,
			&expense.IsApproved,
			&expense.IsReimbursed,
			&expense.ProofRef,
			&expense.CreatedAt,
			&result.Total,
			&totalAmount,
			&totalReimbursable,
		); err != nil {
			err := fmt.Errorf("could not scan expense: %w", err)
			log.Error(err)
			return PageResult{}, err
		}
		expense, err := withAmounts(expense, amount, fromAllocation, fromReimbursement)
		if err != nil {
			return PageResult{}, err
		}
		if result.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
			return PageResult{}, err
		}
		if result.TotalReimbursable, err = decimal.NewFromString(totalReimbursable); err != nil {
			return PageResult{}, err
		}
		result.Items = append(result.Items, expense)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	return result, nil
}

func withAmounts(expense Expense, amount string, fromAllocation string, fromReimbursement string) (Expense, error) {
	var err error
	if expense.Amount, err = decimal.NewFromString(amount); err != nil {
		return Expense{}, fmt.Errorf("could not parse amount: %w", err)
	}
	if expense.FromAllocation, err = decimal.NewFromString(fromAllocation); err != nil {
		return Expense{}, fmt.Errorf("could not parse allocation split: %w", err)
	}
	if expense.FromReimbursement, err = decimal.NewFromString(fromReimbursement); err != nil {
		return Expense{}, fmt.Errorf("could not parse reimbursement split: %w", err)
	}
	return expense, nil
}
