package trips

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/platform/httpx"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// Handler exposes trip endpoints.
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

// MountRoutes registers trip routes. Sub-resource handlers (participants,
// expenses) are mounted inside the same {tripID} subtree.
func (h *Handler) MountRoutes(r chi.Router, sub ...func(chi.Router)) {
	r.With(h.gateway.Require(authz.ResourceOrganization, authz.ActionTripList)).
		Get("/", h.list)
	r.With(h.gateway.Require(authz.ResourceOrganization, authz.ActionTripCreate)).
		Post("/", h.create)

	r.Route("/{tripID}", func(r chi.Router) {
		r.With(h.gateway.Require(authz.ResourceTrip, authz.ActionView)).
			Get("/", h.get)
		r.Group(func(r chi.Router) {
			r.Use(h.gateway.Require(authz.ResourceTrip, authz.ActionManage))
			r.Patch("/", h.update)
			r.Delete("/", h.remove)
		})
		for _, mount := range sub {
			mount(r)
		}
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListForUser(r.Context(), shared.ActorID(r.Context()))
	if err != nil {
		h.logger.Error("list trips", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []UserTrip{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateTripInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	trip, err := h.service.Create(r.Context(), input, shared.ActorID(r.Context()))
	if err != nil {
		h.logger.Error("create trip", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, trip)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	trip, err := h.service.Get(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		h.logger.Error("get trip", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trip)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input UpdateTripInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	trip, err := h.service.Update(r.Context(), chi.URLParam(r, "tripID"), input)
	if err != nil {
		h.logger.Error("update trip", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trip)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "tripID")); err != nil {
		h.logger.Error("delete trip", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
