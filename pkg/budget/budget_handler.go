package budget

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/expentra/expentra/internal/rest"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type BudgetDTO struct {
	ID              int             `json:"id"`
	Uid             string          `json:"uid"`
	UserId          int             `json:"userId"`
	UserName        string          `json:"userName,omitempty"`
	AllocatedAmount decimal.Decimal `json:"allocatedAmount"`
	SpentAmount     decimal.Decimal `json:"spentAmount"`
	Month           int             `json:"month"`
	Year            int             `json:"year"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
}

type BudgetPageDTO struct {
	Data []BudgetDTO   `json:"data"`
	Meta BudgetMetaDTO `json:"meta"`
}

type BudgetMetaDTO struct {
	Total          int             `json:"total"`
	Page           int             `json:"page"`
	Limit          int             `json:"limit"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
}

func BudgetToDTO(b Budget) BudgetDTO {
	dto := BudgetDTO{
		ID:              b.ID,
		Uid:             b.Uid,
		UserId:          b.OwnerID,
		UserName:        b.OwnerName,
		AllocatedAmount: b.AllocatedAmount,
		SpentAmount:     b.SpentAmount,
		Month:           b.Month,
		Year:            b.Year,
	}
	if !b.CreatedAt.IsZero() {
		createdAt := b.CreatedAt
		dto.CreatedAt = &createdAt
	}
	return dto
}

func pageToDTO(result PageResult, p rest.Pagination) BudgetPageDTO {
	data := make([]BudgetDTO, 0, len(result.Items))
	for _, b := range result.Items {
		data = append(data, BudgetToDTO(b))
	}
	return BudgetPageDTO{
		Data: data,
		Meta: BudgetMetaDTO{
			Total:          result.Total,
			Page:           p.Page,
			Limit:          p.Limit,
			TotalAllocated: result.TotalAllocated,
			TotalSpent:     result.TotalSpent,
		},
	}
}

type BudgetHandler struct {
	budgetService BudgetService
}

func NewBudgetHandler(budgetService BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService}
}

func (handler *BudgetHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	log.Debug("Allocating new budget")

	var body struct {
		UserId int             `json:"userId"`
		Amount decimal.Decimal `json:"amount"`
		Month  int             `json:"month"`
		Year   int             `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := handler.budgetService.Allocate(r.Context(), body.UserId, body.Amount, body.Month, body.Year)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, BudgetToDTO(created))
}

func (handler *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	p := rest.ParsePagination(r)
	result, err := handler.budgetService.ListPaginated(r.Context(), p.Page, p.Limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, pageToDTO(result, p))
}

func (handler *BudgetHandler) Search(w http.ResponseWriter, r *http.Request) {
	p := rest.ParsePagination(r)
	q := r.URL.Query()

	filters := SearchFilters{
		UserName: q.Get("userName"),
	}
	filters.Month, _ = strconv.Atoi(q.Get("month"))
	filters.Year, _ = strconv.Atoi(q.Get("year"))
	var err error
	if filters.MinAllocated, err = parseDecimalParam(q.Get("minAllocated")); err != nil {
		http.Error(w, "invalid minAllocated", http.StatusBadRequest)
		return
	}
	if filters.MaxAllocated, err = parseDecimalParam(q.Get("maxAllocated")); err != nil {
		http.Error(w, "invalid maxAllocated", http.StatusBadRequest)
		return
	}
	if filters.MinSpent, err = parseDecimalParam(q.Get("minSpent")); err != nil {
		http.Error(w, "invalid minSpent", http.StatusBadRequest)
		return
	}
	if filters.MaxSpent, err = parseDecimalParam(q.Get("maxSpent")); err != nil {
		http.Error(w, "invalid maxSpent", http.StatusBadRequest)
		return
	}

	result, err := handler.budgetService.Search(r.Context(), filters, p.Page, p.Limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, pageToDTO(result, p))
}

func (handler *BudgetHandler) Edit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	budgetId, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid budget id", http.StatusBadRequest)
		return
	}

	var body struct {
		Amount *decimal.Decimal `json:"amount"`
		Month  *int             `json:"month"`
		Year   *int             `json:"year"`
		UserId *int             `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := handler.budgetService.Edit(r.Context(), budgetId, EditPatch{
		Amount:  body.Amount,
		Month:   body.Month,
		Year:    body.Year,
		OwnerID: body.UserId,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, BudgetToDTO(updated))
}

func (handler *BudgetHandler) GetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	budgetId, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid budget id", http.StatusBadRequest)
		return
	}

	budget, err := handler.budgetService.GetById(r.Context(), budgetId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, BudgetToDTO(budget))
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
