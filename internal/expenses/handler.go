package expenses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/platform/httpx"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// Handler exposes expense endpoints under a trip.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	gateway  *authz.Gateway
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gateway *authz.Gateway) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		gateway:  gateway,
		validate: validator.New(),
	}
}

// MountRoutes registers expense routes on a trip-scoped router. Listing and
// creation are trip-level permissions; mutation of a single expense is an
// expense-level permission evaluated against the parent trip's membership.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.With(h.gateway.Require(authz.ResourceTrip, authz.ActionExpenseList)).
			Get("/", h.list)
		r.With(h.gateway.Require(authz.ResourceTrip, authz.ActionExpenseCreate)).
			Post("/", h.create)
		r.Group(func(r chi.Router) {
			r.Use(h.gateway.Require(authz.ResourceExpense, authz.ActionManage))
			r.Patch("/{expenseID}", h.update)
			r.Delete("/{expenseID}", h.remove)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateExpenseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	expense, err := h.service.Create(r.Context(),
		chi.URLParam(r, "tripID"), shared.ActorID(r.Context()), input)
	if err != nil {
		h.logger.Error("create expense", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input UpdateExpenseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	expense, err := h.service.Update(r.Context(),
		chi.URLParam(r, "tripID"), chi.URLParam(r, "expenseID"), input)
	if err != nil {
		h.logger.Error("update expense", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "expenseID"))
	if err != nil {
		h.logger.Error("delete expense", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
