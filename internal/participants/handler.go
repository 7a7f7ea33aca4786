package participants

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/platform/httpx"
)

// Handler exposes participant endpoints under a trip.
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

// MountRoutes registers participant routes on a trip-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gateway.Require(authz.ResourceTrip, authz.ActionParticipantsList)).
		Get("/participants", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.gateway.Require(authz.ResourceTrip, authz.ActionParticipantsManage))
		r.Post("/invite", h.add)
		r.Patch("/participants/{userID}", h.updateRole)
		r.Delete("/participants/{userID}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		h.logger.Error("list participants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Participant{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var input AddParticipantInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	participant, err := h.service.Add(r.Context(), chi.URLParam(r, "tripID"), input)
	if err != nil {
		h.logger.Error("add participant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, participant)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var input UpdateRoleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	participant, err := h.service.UpdateRole(r.Context(),
		chi.URLParam(r, "tripID"), chi.URLParam(r, "userID"), input.RoleID)
	if err != nil {
		h.logger.Error("update participant role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, participant)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	err := h.service.Remove(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.logger.Error("remove participant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
