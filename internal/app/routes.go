package app

import (
	"github.com/expentra/expentra/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Budgets
	r.HandleFunc("/api/budget", deps.BudgetHandler.Allocate).Methods("POST")
	r.HandleFunc("/api/budget", deps.BudgetHandler.List).Methods("GET")
	r.HandleFunc("/api/budget/search", deps.BudgetHandler.Search).Methods("GET")
	r.HandleFunc("/api/budget/{id}", deps.BudgetHandler.GetById).Methods("GET")
	r.HandleFunc("/api/budget/{id}", deps.BudgetHandler.Edit).Methods("PUT")

	// Expenses
	r.HandleFunc("/api/expense", deps.ExpenseHandler.Create).Methods("POST")
	r.HandleFunc("/api/expense", deps.ExpenseHandler.List).Methods("GET")
	r.HandleFunc("/api/expense/search", deps.ExpenseHandler.Search).Methods("GET")
	r.HandleFunc("/api/expense/{id}", deps.ExpenseHandler.GetById).Methods("GET")
	r.HandleFunc("/api/expense/{id}", deps.ExpenseHandler.Update).Methods("PUT")

	// Reimbursements
	r.HandleFunc("/api/reimbursement", deps.ReimbursementHandler.Create).Methods("POST")
	r.HandleFunc("/api/reimbursement", deps.ReimbursementHandler.List).Methods("GET")
	r.HandleFunc("/api/reimbursement/{id}", deps.ReimbursementHandler.GetById).Methods("GET")
	r.HandleFunc("/api/reimbursement/{id}", deps.ReimbursementHandler.UserUpdate).Methods("PUT")
	r.HandleFunc("/api/reimbursement/{id}/settlement", deps.ReimbursementHandler.Settle).Methods("PUT")

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user", deps.UserHandler.GetAllUsers).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/{id}/budgets", deps.UserHandler.ListBudgetIds).Methods("GET")
}
