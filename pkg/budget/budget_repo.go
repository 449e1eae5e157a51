package budget

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

type BudgetRepo interface {
	// Store stores a new Budget to the database
	Store(ctx context.Context, budget Budget) (int, error)
	FindById(ctx context.Context, id int) (Budget, error)
	// FindByOwnerAndPeriod locates the owner's budget for a month/year pair.
	FindByOwnerAndPeriod(ctx context.Context, ownerId int, month int, year int) (Budget, error)
	// Update writes allocated amount, period and owner in a single statement,
	// so an owner reassignment attaches and detaches atomically.
	Update(ctx context.Context, budget Budget) error
	ListPaginated(ctx context.Context, page int, limit int) (PageResult, error)
	Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error)
}

const budgetPageColumns = `b.id, b.uid, b.user_id, u.display_name, b.allocated_amount::text, b.spent_amount::text,
				b.month, b.year, b.created_at,
				COUNT(*) OVER() AS total,
				COALESCE(SUM(b.allocated_amount) OVER(), 0)::text AS total_allocated,
				COALESCE(SUM(b.spent_amount) OVER(), 0)::text AS total_spent`

type BudgetRepoImpl struct {
	db *pgxpool.Pool
}

func NewBudgetRepo(db *pgxpool.Pool) *BudgetRepoImpl {
	return &BudgetRepoImpl{db: db}
}

func (bi *BudgetRepoImpl) Store(ctx context.Context, budget Budget) (int, error) {
	query := `INSERT INTO budgets (
                    uid,
                    user_id,
                    allocated_amount,
                    spent_amount,
                    month,
                    year
				) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	var id int
	err := bi.db.QueryRow(ctx, query,
		budget.Uid,
		budget.OwnerID,
		budget.AllocatedAmount.String(),
		budget.SpentAmount.String(),
		budget.Month,
		budget.Year,
	).Scan(&id)
	if err != nil {
		err := fmt.Errorf("could not store budget: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (bi *BudgetRepoImpl) FindById(ctx context.Context, id int) (Budget, error) {
	query := `SELECT b.id, b.uid, b.user_id, u.display_name, b.allocated_amount::text, b.spent_amount::text,
					b.month, b.year, b.created_at
				FROM budgets b JOIN users u ON u.id = b.user_id
				WHERE b.id = $1`
	budget, err := scanBudget(bi.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, apperr.NotFound("budget %d", id)
	} else if err != nil {
		log.Errorf("could not find budget %d: %v", id, err)
		return Budget{}, err
	}
	return budget, nil
}

func (bi *BudgetRepoImpl) FindByOwnerAndPeriod(ctx context.Context, ownerId int, month int, year int) (Budget, error) {
	query := `SELECT b.id, b.uid, b.user_id, u.display_name, b.allocated_amount::text, b.spent_amount::text,
					b.month, b.year, b.created_at
				FROM budgets b JOIN users u ON u.id = b.user_id
				WHERE b.user_id = $1 AND b.month = $2 AND b.year = $3`
	budget, err := scanBudget(bi.db.QueryRow(ctx, query, ownerId, month, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, apperr.NotFound("budget for user %d in %d/%d", ownerId, month, year)
	} else if err != nil {
		log.Errorf("could not find budget for user %d in %d/%d: %v", ownerId, month, year, err)
		return Budget{}, err
	}
	return budget, nil
}

func (bi *BudgetRepoImpl) Update(ctx context.Context, budget Budget) error {
	query := `UPDATE budgets SET
                  user_id = $1,
                  allocated_amount = $2,
                  month = $3,
                  year = $4
              WHERE id = $5`
	result, err := bi.db.Exec(ctx, query,
		budget.OwnerID,
		budget.AllocatedAmount.String(),
		budget.Month,
		budget.Year,
		budget.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not update budget: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("budget %d", budget.ID)
	}
	return nil
}

func (bi *BudgetRepoImpl) ListPaginated(ctx context.Context, page int, limit int) (PageResult, error) {
	query := fmt.Sprintf(`SELECT %s
				FROM budgets b JOIN users u ON u.id = b.user_id
				ORDER BY b.created_at DESC, b.id DESC
				LIMIT $1 OFFSET $2`, budgetPageColumns)
	rows, err := bi.db.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		err := fmt.Errorf("could not query budgets: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	defer rows.Close()
	return scanBudgetPage(rows)
}

func (bi *BudgetRepoImpl) Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	conditions := []string{"TRUE"}
	args := []any{}

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filters.UserName != "" {
		addCondition("u.display_name ILIKE '%%' || $%d || '%%'", filters.UserName)
	}
	if filters.Month != 0 {
		addCondition("b.month = $%d", filters.Month)
	}
	if filters.Year != 0 {
		addCondition("b.year = $%d", filters.Year)
	}
	if filters.MinAllocated != nil {
		addCondition("b.allocated_amount >= $%d", filters.MinAllocated.String())
	}
	if filters.MaxAllocated != nil {
		addCondition("b.allocated_amount <= $%d", filters.MaxAllocated.String())
	}
	if filters.MinSpent != nil {
		addCondition("b.spent_amount >= $%d", filters.MinSpent.String())
	}
	if filters.MaxSpent != nil {
		addCondition("b.spent_amount <= $%d", filters.MaxSpent.String())
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s
				FROM budgets b JOIN users u ON u.id = b.user_id
				WHERE %s
				ORDER BY b.created_at DESC, b.id DESC
				LIMIT $%d OFFSET $%d`,
		budgetPageColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := bi.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not search budgets: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	defer rows.Close()
	return scanBudgetPage(rows)
}

func scanBudget(row pgx.Row) (Budget, error) {
	var budget Budget
	var allocated, spent string
	if err := row.Scan(
		&budget.ID,
		&budget.Uid,
		&budget.OwnerID,
		&budget.OwnerName,
		&allocated,
		&spent,
		&budget.Month,
		&budget.Year,
		&budget.CreatedAt,
	); err != nil {
		return Budget{}, err
	}
	return withAmounts(budget, allocated, spent)
}

func scanBudgetPage(rows pgx.Rows) (PageResult, error) {
	result := PageResult{
		Items:          []Budget{},
		TotalAllocated: decimal.Zero,
		TotalSpent:     decimal.Zero,
	}
	for rows.Next() {
		var budget Budget
		var allocated, spent, totalAllocated, totalSpent string
		if err := rows.Scan(
			&budget.ID,
			&budget.Uid,
			&budget.OwnerID,
			&budget.OwnerName,
			&allocated,
			&spent,
			&budget.Month,
			&budget.Year,
			&budget.CreatedAt,
			&result.Total,
			&totalAllocated,
			&totalSpent,
		); err != nil {
			err := fmt.Errorf("could not scan budget: %w", err)
			log.Error(err)
			return PageResult{}, err
		}
		budget, err := withAmounts(budget, allocated, spent)
		if err != nil {
			return PageResult{}, err
		}
		if result.TotalAllocated, err = decimal.NewFromString(totalAllocated); err != nil {
			return PageResult{}, err
		}
		if result.TotalSpent, err = decimal.NewFromString(totalSpent); err != nil {
			return PageResult{}, err
		}
		result.Items = append(result.Items, budget)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return PageResult{}, err
	}
	return result, nil
}

func withAmounts(budget Budget, allocated string, spent string) (Budget, error) {
	var err error
	if budget.AllocatedAmount, err = decimal.NewFromString(allocated); err != nil {
		return Budget{}, fmt.Errorf("could not parse allocated amount: %w", err)
	}
	if budget.SpentAmount, err = decimal.NewFromString(spent); err != nil {
		return Budget{}, fmt.Errorf("could not parse spent amount: %w", err)
	}
	return budget, nil
}
