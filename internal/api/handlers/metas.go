package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dcastellanos/ahorro-backend/internal/api/httpx"
	"github.com/dcastellanos/ahorro-backend/internal/api/validate"
	"github.com/dcastellanos/ahorro-backend/internal/models"
	"github.com/dcastellanos/ahorro-backend/internal/repository"
	"github.com/dcastellanos/ahorro-backend/internal/services"
)

type MetasHandler struct {
	Svc *services.GoalService
}

func NewMetasHandler(svc *services.GoalService) *MetasHandler {
	return &MetasHandler{Svc: svc}
}

func goalID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *MetasHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.Svc.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list goals", err)
		return
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	httpx.WriteJSON(w, http.StatusOK, goals)
}

func (h *MetasHandler) Create(w http.ResponseWriter, r *http.Request) {
	var g models.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "cuerpo inválido", nil)
		return
	}
	created, err := h.Svc.Create(r.Context(), g)
	if err != nil {
		h.writeGoalError(w, r, "create goal", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *MetasHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := goalID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "id inválido", nil)
		return
	}
	var g models.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "cuerpo inválido", nil)
		return
	}
	updated, err := h.Svc.Update(r.Context(), id, g)
	if err != nil {
		h.writeGoalError(w, r, "update goal", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *MetasHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := goalID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "id inválido", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeGoalError(w, r, "delete goal", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Meta eliminada correctamente"})
}

func (h *MetasHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	id, err := goalID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "id inválido", nil)
		return
	}
	deps, err := h.Svc.Deposits(r.Context(), id)
	if err != nil {
		h.writeGoalError(w, r, "list deposits", err)
		return
	}
	if deps == nil {
		deps = []models.Deposit{}
	}
	httpx.WriteJSON(w, http.StatusOK, deps)
}

func (h *MetasHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := goalID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "id inválido", nil)
		return
	}
	var d models.Deposit
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "cuerpo inválido", nil)
		return
	}
	created, err := h.Svc.AddDeposit(r.Context(), id, d)
	if err != nil {
		h.writeGoalError(w, r, "create deposit", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *MetasHandler) writeGoalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verrs validate.Errs
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Meta no encontrada", nil)
	case errors.As(err, &verrs):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", verrs.Error(), verrs)
	default:
		h.internalError(w, r, op, err)
	}
}

func (h *MetasHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error(op, "err", err, "path", r.URL.Path)
	httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "error interno", nil)
}
