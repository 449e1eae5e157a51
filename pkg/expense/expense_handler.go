package expense

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/expentra/expentra/internal/rest"
	"github.com/expentra/expentra/internal/utils"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ExpenseDTO struct {
	ID                int             `json:"id"`
	Uid               string          `json:"uid"`
	UserId            int             `json:"userId"`
	UserName          string          `json:"userName,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	FromAllocation    decimal.Decimal `json:"fromAllocation"`
	FromReimbursement decimal.Decimal `json:"fromReimbursement"`
	Department        string          `json:"department"`
	SubDepartment     string          `json:"subDepartment,omitempty"`
	Month             int             `json:"month"`
	Year              int             `json:"year"`
	IsApproved        bool            `json:"isApproved"`
	IsReimbursed      bool            `json:"isReimbursed"`
	ProofRef          string          `json:"proofRef,omitempty"`
	CreatedAt         *time.Time      `json:"createdAt,omitempty"`
}

type BudgetSnapshotDTO struct {
	BudgetId  int             `json:"budgetId"`
	Allocated decimal.Decimal `json:"allocated"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

type ExpensePageDTO struct {
	Data []ExpenseDTO   `json:"data"`
	Meta ExpenseMetaDTO `json:"meta"`
}

type ExpenseMetaDTO struct {
	Total             int             `json:"total"`
	Page              int             `json:"page"`
	Limit             int             `json:"limit"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	TotalReimbursable decimal.Decimal `json:"totalReimbursable"`
}

func ExpenseToDTO(e Expense) ExpenseDTO {
	dto := ExpenseDTO{
		ID:                e.ID,
		Uid:               e.Uid,
		UserId:            e.OwnerID,
		UserName:          e.OwnerName,
		Amount:            e.Amount,
		FromAllocation:    e.FromAllocation,
		FromReimbursement: e.FromReimbursement,
		Department:        e.Department,
		SubDepartment:     e.SubDepartment,
		Month:             e.Month,
		Year:              e.Year,
		IsApproved:        e.IsApproved,
		IsReimbursed:      e.IsReimbursed,
		ProofRef:          e.ProofRef,
	}
	if !e.CreatedAt.IsZero() {
		createdAt := e.CreatedAt
		dto.CreatedAt = &createdAt
	}
	return dto
}

func pageToDTO(result PageResult, p rest.Pagination) ExpensePageDTO {
	data := make([]ExpenseDTO, 0, len(result.Items))
	for _, e := range result.Items {
		data = append(data, ExpenseToDTO(e))
	}
	return ExpensePageDTO{
		Data: data,
		Meta: ExpenseMetaDTO{
			Total:             result.Total,
			Page:              p.Page,
			Limit:             p.Limit,
			TotalAmount:       result.TotalAmount,
			TotalReimbursable: result.TotalReimbursable,
		},
	}
}

type ExpenseHandler struct {
	expenseService ExpenseService
	clock          utils.Clock
}

func NewExpenseHandler(expenseService ExpenseService, clock utils.Clock) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, clock: clock}
}

func (handler *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Recording new expense")

	var body struct {
		Amount        decimal.Decimal `json:"amount"`
		Department    string          `json:"department"`
		SubDepartment string          `json:"subDepartment"`
		Month         int             `json:"month"`
		Year          int             `json:"year"`
		IsReimbursed  bool            `json:"isReimbursed"`
		ProofRef      string          `json:"proofRef"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Default to the current period when the caller omits it.
	if body.Month == 0 && body.Year == 0 {
		now := handler.clock.Now()
		body.Month = int(now.Month())
		body.Year = now.Year()
	}

	created, snapshot, err := handler.expenseService.Create(r.Context(), CreateInput{
		Amount:        body.Amount,
		Department:    body.Department,
		SubDepartment: body.SubDepartment,
		Month:         body.Month,
		Year:          body.Year,
		IsReimbursed:  body.IsReimbursed,
		ProofRef:      body.ProofRef,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	response := struct {
		Expense        ExpenseDTO         `json:"expense"`
		BudgetSnapshot *BudgetSnapshotDTO `json:"budgetSnapshot,omitempty"`
	}{Expense: ExpenseToDTO(created)}
	if snapshot.BudgetID != 0 {
		response.BudgetSnapshot = &BudgetSnapshotDTO{
			BudgetId:  snapshot.BudgetID,
			Allocated: snapshot.Allocated,
			Spent:     snapshot.Spent,
			Remaining: snapshot.Remaining,
		}
	}
	rest.WriteJSON(w, http.StatusCreated, response)
}

func (handler *ExpenseHandler) GetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expenseId, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}

	expense, err := handler.expenseService.GetById(r.Context(), expenseId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ExpenseToDTO(expense))
}

func (handler *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	p := rest.ParsePagination(r)
	result, err := handler.expenseService.ListPaginated(r.Context(), p.Page, p.Limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, pageToDTO(result, p))
}

func (handler *ExpenseHandler) Search(w http.ResponseWriter, r *http.Request) {
	p := rest.ParsePagination(r)
	q := r.URL.Query()

	filters := SearchFilters{
		Payee:      q.Get("payee"),
		Department: q.Get("department"),
	}
	filters.Month, _ = strconv.Atoi(q.Get("month"))
	filters.Year, _ = strconv.Atoi(q.Get("year"))
	filters.IsApproved = parseBoolParam(q.Get("isApproved"))
	filters.IsReimbursed = parseBoolParam(q.Get("isReimbursed"))
	var err error
	if filters.MinAmount, err = parseDecimalParam(q.Get("minAmount")); err != nil {
		http.Error(w, "invalid minAmount", http.StatusBadRequest)
		return
	}
	if filters.MaxAmount, err = parseDecimalParam(q.Get("maxAmount")); err != nil {
		http.Error(w, "invalid maxAmount", http.StatusBadRequest)
		return
	}

	result, err := handler.expenseService.Search(r.Context(), filters, p.Page, p.Limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, pageToDTO(result, p))
}

func (handler *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expenseId, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}

	var body struct {
		Department    *string `json:"department"`
		SubDepartment *string `json:"subDepartment"`
		IsApproved    *bool   `json:"isApproved"`
		IsReimbursed  *bool   `json:"isReimbursed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := handler.expenseService.UpdateFields(r.Context(), expenseId, UpdatePatch{
		Department:    body.Department,
		SubDepartment: body.SubDepartment,
		IsApproved:    body.IsApproved,
		IsReimbursed:  body.IsReimbursed,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ExpenseToDTO(updated))
}

func parseBoolParam(raw string) *bool {
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

func parseDecimalParam(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
