package reimbursement

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

type ReimbursementDTO struct {
	ID                int             `json:"id"`
	Uid               string          `json:"uid"`
	ExpenseId         int             `json:"expenseId"`
	RequestedBy       int             `json:"requestedBy"`
	RequesterName     string          `json:"requesterName,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	IsReimbursed      bool            `json:"isReimbursed"`
	ReimbursedAt      *time.Time      `json:"reimbursedAt,omitempty"`
	CreatedAt         *time.Time      `json:"createdAt,omitempty"`
	ExpenseAmount     decimal.Decimal `json:"expenseAmount"`
	ExpenseDepartment string          `json:"expenseDepartment,omitempty"`
}

type StatsDTO struct {
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidCount     int             `json:"paidCount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingCount  int             `json:"pendingCount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
}

type PageDTO struct {
	Data  []ReimbursementDTO `json:"data"`
	Meta  MetaDTO            `json:"meta"`
	Stats StatsDTO           `json:"stats"`
}

type MetaDTO struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func toDTO(r Reimbursement) ReimbursementDTO {
	dto := ReimbursementDTO{
		ID:                r.ID,
		Uid:               r.Uid,
		ExpenseId:         r.ExpenseID,
		RequestedBy:       r.RequestedBy,
		RequesterName:     r.RequesterName,
		Amount:            r.Amount,
		IsReimbursed:      r.IsReimbursed,
		ReimbursedAt:      r.ReimbursedAt,
		ExpenseAmount:     r.ExpenseAmount,
		ExpenseDepartment: r.ExpenseDepartment,
	}
	if !r.CreatedAt.IsZero() {
		createdAt := r.CreatedAt
		dto.CreatedAt = &createdAt
	}
	return dto
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating reimbursement request")

	var body struct {
		ExpenseId int             `json:"expenseId"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), body.ExpenseId, body.Amount)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(created))
}

func (h *Handler) GetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid reimbursement id", http.StatusBadRequest)
		return
	}

	reimbursement, err := h.service.GetById(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(reimbursement))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := rest.ParsePagination(r)
	q := r.URL.Query()

	filters := SearchFilters{
		RequesterName: q.Get("requesterName"),
		Location:      q.Get("location"),
	}
	filters.RequestedBy, _ = strconv.Atoi(q.Get("requestedBy"))
	filters.Month, _ = strconv.Atoi(q.Get("month"))
	filters.Year, _ = strconv.Atoi(q.Get("year"))
	if raw := q.Get("isReimbursed"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			filters.IsReimbursed = &b
		}
	}
	var err error
	if filters.MinAmount, err = parseDecimalParam(q.Get("minAmount")); err != nil {
		http.Error(w, "invalid minAmount", http.StatusBadRequest)
		return
	}
	if filters.MaxAmount, err = parseDecimalParam(q.Get("maxAmount")); err != nil {
		http.Error(w, "invalid maxAmount", http.StatusBadRequest)
		return
	}

	result, err := h.service.ListAll(r.Context(), filters, p.Page, p.Limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	data := make([]ReimbursementDTO, 0, len(result.Items))
	for _, item := range result.Items {
		data = append(data, toDTO(item))
	}
	rest.WriteJSON(w, http.StatusOK, PageDTO{
		Data: data,
		Meta: MetaDTO{Total: result.Total, Page: p.Page, Limit: p.Limit},
		Stats: StatsDTO{
			Count:         result.Stats.Count,
			TotalAmount:   result.Stats.TotalAmount,
			PaidCount:     result.Stats.PaidCount,
			PaidAmount:    result.Stats.PaidAmount,
			PendingCount:  result.Stats.PendingCount,
			PendingAmount: result.Stats.PendingAmount,
		},
	})
}

func (h *Handler) UserUpdate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid reimbursement id", http.StatusBadRequest)
		return
	}

	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.service.UserUpdate(r.Context(), id, body.Amount)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(updated))
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid reimbursement id", http.StatusBadRequest)
		return
	}

	var body struct {
		IsReimbursed bool `json:"isReimbursed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	settled, err := h.service.Settle(r.Context(), id, body.IsReimbursed)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(settled))
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
