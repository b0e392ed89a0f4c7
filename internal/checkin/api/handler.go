package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/checkin"
	"ms-registration/internal/domain"
	"ms-registration/internal/logger"
	"ms-registration/internal/utils"
)

type Handler struct {
	Service *checkin.Service
	Logger  *logger.Logger
}

func NewHandler(service *checkin.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkin", h.CheckIn)
}

// CheckIn handles a kiosk scan. Expected POST body:
// {"registration_number": "REG-14112025-000001"}
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		RegistrationNumber string `json:"registration_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	result, err := h.Service.CheckIn(r.Context(), requestBody.RegistrationNumber)
	if err != nil {
		status, message := checkinErrorStatus(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("checked in", result))
}

// checkinErrorStatus maps the rejection taxonomy: conflicts are expected
// outcomes under concurrent kiosk load, contention is transient, and only
// genuinely unexpected failures surface as 500s.
func checkinErrorStatus(err error) (int, string) {
	if ace, ok := domain.AsAlreadyCheckedIn(err); ok {
		return http.StatusConflict, ace.Error()
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "invalid check-in request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "registration not found"
	case errors.Is(err, domain.ErrCancelled):
		return http.StatusConflict, "registration is cancelled"
	case errors.Is(err, domain.ErrLockContention):
		return http.StatusTooManyRequests, "check-in in progress, try again shortly"
	default:
		return http.StatusInternalServerError, "check-in failed"
	}
}
