package app

import (
	"time"

	"github.com/expentra/expentra/internal/cache"
	"github.com/expentra/expentra/internal/config"
	"github.com/expentra/expentra/internal/event_bus"
	"github.com/expentra/expentra/internal/utils"
	"github.com/expentra/expentra/pkg/budget"
	"github.com/expentra/expentra/pkg/expense"
	"github.com/expentra/expentra/pkg/reimbursement"
	"github.com/expentra/expentra/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Cache    cache.Cache
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	UserRepo    user.Repo
	UserService user.Service
	UserHandler *user.Handler

	BudgetRepo    budget.BudgetRepo
	BudgetService *budget.BudgetServiceImpl
	BudgetHandler *budget.BudgetHandler

	ExpenseRepo    expense.ExpenseRepo
	ExpenseService *expense.ExpenseServiceImpl
	ExpenseHandler *expense.ExpenseHandler

	ReimbursementRepo    reimbursement.Repository
	ReimbursementService *reimbursement.ServiceImpl
	ReimbursementHandler *reimbursement.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	if cfg.Cache.Enabled {
		deps.Cache = cache.NewStore(
			time.Duration(cfg.Cache.TTLSeconds)*time.Second,
			time.Duration(cfg.Cache.CleanupIntervalSeconds)*time.Second,
		)
	} else {
		deps.Cache = cache.Noop{}
	}
	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.UserRepo = user.NewUserRepo(db)
	deps.UserService = user.NewUserService(deps.UserRepo)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.BudgetRepo = budget.NewBudgetRepo(db)
	deps.BudgetService = budget.NewBudgetServiceImpl(deps.BudgetRepo, deps.UserRepo, deps.Cache)
	deps.BudgetHandler = budget.NewBudgetHandler(deps.BudgetService)

	deps.ExpenseRepo = expense.NewExpenseRepo(db)
	deps.ExpenseService = expense.NewExpenseServiceImpl(deps.ExpenseRepo, deps.BudgetRepo, deps.UserRepo, deps.Cache)
	deps.ExpenseHandler = expense.NewExpenseHandler(deps.ExpenseService, deps.Clock)

	deps.ReimbursementRepo = reimbursement.NewRepository(db)
	notifier := reimbursement.NewEventBusNotifier(deps.EventBus)
	deps.ReimbursementService = reimbursement.NewService(deps.ReimbursementRepo, deps.ExpenseRepo, deps.Cache, notifier, deps.Clock)
	deps.ReimbursementHandler = reimbursement.NewHandler(deps.ReimbursementService)

	// Stand-in for the external notification delivery channel.
	event_bus.SubscribeTyped[event_bus.ReimbursementSettled](deps.EventBus, event_bus.EventReimbursementSettled,
		func(e event_bus.EventT[event_bus.ReimbursementSettled]) error {
			log.Infof("notify user %d: reimbursement %d paid (%s)",
				e.Data.RequestedBy, e.Data.ReimbursementId, e.Data.Amount)
			return nil
		})

	return deps
}
