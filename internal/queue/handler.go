package queue

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/pkg/httputil"
)

// Handler handles HTTP requests for the queue module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new queue handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers queue and statistics routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/queue", func(r chi.Router) {
		r.Post("/", h.AddToQueue)
		r.Get("/", h.ListQueue)
		r.Get("/stats", h.GetStats)
		r.Get("/next", h.GetNext)
		r.Get("/{id}", h.GetEntry)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Delete("/{id}", h.CancelEntry)
	})

	r.Route("/stats", func(r chi.Router) {
		r.Get("/daily", h.GetDailyStats)
		r.Get("/weekly", h.GetWeeklyStats)
	})
}

// AddToQueueRequest represents the request body for admitting a patient.
type AddToQueueRequest struct {
	PatientID   string `json:"nik" validate:"required"`
	PatientName string `json:"nama" validate:"required"`
	BirthPlace  string `json:"tempat_lahir" validate:"required"`
	BirthDate   string `json:"tgl_lahir" validate:"required"`
	Gender      string `json:"jenis_kelamin" validate:"required"`
	Address     string `json:"alamat" validate:"required"`
	Religion    string `json:"agama" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Note        string `json:"keterangan"`
}

// ToInput converts the request to service input.
func (r *AddToQueueRequest) ToInput() AddInput {
	return AddInput{
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		BirthPlace:  r.BirthPlace,
		BirthDate:   r.BirthDate,
		Gender:      r.Gender,
		Address:     r.Address,
		Religion:    r.Religion,
		Priority:    domain.Priority(r.Priority),
		Note:        r.Note,
	}
}

// UpdateStatusRequest represents the request body for changing an entry status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=WAITING IN_PROGRESS COMPLETED CANCELLED"`
	Note   string `json:"keterangan"`
}

// listQuery holds parsed GET /queue query parameters.
type listQuery struct {
	Status   string `validate:"omitempty,oneof=WAITING IN_PROGRESS COMPLETED CANCELLED"`
	Priority string `validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Date     string `validate:"omitempty,datetime=2006-01-02"`
	Page     int    `validate:"min=1"`
	Limit    int    `validate:"min=1,max=100"`
}

type dailyQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

// AddToQueue handles POST /queue request.
func (h *Handler) AddToQueue(w http.ResponseWriter, r *http.Request) {
	var req AddToQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.Add(r.Context(), req.ToInput())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, result)
}

// ListQueue handles GET /queue request.
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := listQuery{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Date:     q.Get("date"),
		Page:     DefaultPage,
		Limit:    DefaultLimit,
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid page")
			return
		}
		query.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = limit
	}

	if err := h.validator.Struct(query); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	filter := ListFilter{Date: query.Date}
	if query.Status != "" {
		s := domain.Status(query.Status)
		filter.Status = &s
	}
	if query.Priority != "" {
		p := domain.Priority(query.Priority)
		filter.Priority = &p
	}

	result, err := h.service.List(r.Context(), filter, Page{Page: query.Page, Limit: query.Limit})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// GetStats handles GET /queue/stats request.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, stats)
}

// GetNext handles GET /queue/next request.
func (h *Handler) GetNext(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Next(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// GetEntry handles GET /queue/{id} request.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// UpdateStatus handles PATCH /queue/{id}/status request.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.Status(req.Status), req.Note)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// CancelEntry handles DELETE /queue/{id} request.
func (h *Handler) CancelEntry(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// GetDailyStats handles GET /stats/daily request.
func (h *Handler) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	query := dailyQuery{Date: r.URL.Query().Get("date")}
	if err := h.validator.Struct(query); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	daily, err := h.service.DailyStats(r.Context(), query.Date)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, daily)
}

// GetWeeklyStats handles GET /stats/weekly request.
func (h *Handler) GetWeeklyStats(w http.ResponseWriter, r *http.Request) {
	weekly, err := h.service.WeeklyStats(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, weekly)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidTransition, Status: http.StatusConflict},
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, errorMappings)
}
