package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/badge"
	"ms-registration/internal/domain"
	"ms-registration/internal/logger"
	"ms-registration/internal/printing"
	"ms-registration/internal/registration"
	"ms-registration/internal/utils"
)

type Handler struct {
	Service *registration.Service
	Printer printing.Submitter
	Logger  *logger.Logger
}

func NewHandler(service *registration.Service, printer printing.Submitter, log *logger.Logger) *Handler {
	return &Handler{Service: service, Printer: printer, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/registrations", h.CreateRegistration)
	r.Get("/registrations/number/{registrationNumber}", h.GetByNumber)
	r.Get("/registrations/{registrationID}/badge", h.GetBadge)
	r.Post("/registrations/{registrationID}/print", h.SubmitPrint)
}

func (h *Handler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req registration.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	resp, err := h.Service.Create(r.Context(), req)
	if err != nil {
		status, message := registrationErrorStatus(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("registration created", resp))
}

// GetByNumber is the read-only lookup used by kiosk tooling to inspect a
// scanned registration without transitioning it.
func (h *Handler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "registrationNumber")

	reg, err := h.Service.DB.GetRegistrationByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("registration not found", err.Error()))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("registration lookup failed", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("registration", reg))
}

// GetBadge serves the current badge image, regenerating it from durable
// records when no file exists. When even regeneration fails it falls back
// to a freshly rendered plain QR code.
func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	registrationID := chi.URLParam(r, "registrationID")

	path, qrPayload, err := h.Service.Badge(r.Context(), registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("registration not found", err.Error()))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("badge retrieval failed", err.Error()))
		return
	}

	if path != "" {
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, path)
		return
	}

	qrPNG, err := badge.RenderQR(qrPayload)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("badge unavailable", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(qrPNG)
}

func (h *Handler) SubmitPrint(w http.ResponseWriter, r *http.Request) {
	registrationID := chi.URLParam(r, "registrationID")

	job, err := h.buildPrintJob(r, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("registration not found", err.Error()))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("print submission failed", err.Error()))
		return
	}

	jobID, position, err := h.Printer.Submit(r.Context(), *job)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse("print queue unavailable", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, utils.SuccessResponse("print job queued", map[string]interface{}{
		"job_id":   jobID,
		"position": position,
	}))
}

func (h *Handler) buildPrintJob(r *http.Request, registrationID string) (*printing.Job, error) {
	reg, err := h.Service.DB.GetRegistrationByID(r.Context(), registrationID)
	if err != nil {
		return nil, err
	}
	qrPNG, err := badge.RenderQR(reg.QRPayload)
	if err != nil {
		return nil, err
	}

	job := &printing.Job{
		RegistrationNumber: reg.RegistrationNumber,
		QRPNG:              qrPNG,
		Category:           reg.Category,
	}
	if vis, err := h.Service.DB.GetVisitorByID(r.Context(), reg.VisitorID); err == nil {
		job.VisitorName = vis.Name
		job.Company = vis.Company
	}
	if ex, err := h.Service.DB.GetExhibitionByID(r.Context(), reg.ExhibitionID); err == nil {
		job.ExhibitionName = ex.Name
	}
	return job, nil
}

func registrationErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "invalid registration request"
	case errors.Is(err, domain.ErrRegistrationClosed):
		return http.StatusBadRequest, "registration window closed"
	case errors.Is(err, domain.ErrInvalidPricing):
		return http.StatusBadRequest, "invalid pricing selection"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return http.StatusConflict, "already registered"
	case errors.Is(err, domain.ErrDuplicatePhone):
		return http.StatusConflict, "phone already registered"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "registration failed"
	}
}
