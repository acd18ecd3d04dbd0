package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/httputil"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// CatalogHandler serves the lookup tables and the holiday calendar
type CatalogHandler struct {
	catalog  *repository.CatalogRepository
	holidays *repository.HolidayCache
	logger   *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *repository.CatalogRepository, holidays *repository.HolidayCache, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		holidays: holidays,
		logger:   log,
	}
}

// Register mounts the catalog and holiday routes
func (h *CatalogHandler) Register(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/activity-types", h.ActivityTypes)
		r.Get("/projects", h.Projects)
		r.Post("/projects", h.CreateProject)
		r.Get("/productivity-types", h.ProductivityTypes)
		r.Get("/work-types", h.WorkTypes)
	})
	r.Route("/holidays", func(r chi.Router) {
		r.Get("/", h.Holidays)
		r.Post("/", h.CreateHoliday)
	})
}

// ProjectRequest is the body of a new project
type ProjectRequest struct {
	Number string `json:"number" validate:"required,max=50"`
	Name   string `json:"name" validate:"required,max=200"`
}

// HolidayRequest is the body of a new holiday
type HolidayRequest struct {
	Date string `json:"date" validate:"required,date"`
	Name string `json:"name" validate:"required,max=200"`
}

// ActivityTypes lists activity types
func (h *CatalogHandler) ActivityTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ActivityTypes(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, items)
}

// Projects lists projects
func (h *CatalogHandler) Projects(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Projects(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, items)
}

// CreateProject adds a project
func (h *CatalogHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	project := &repository.Project{Number: req.Number, Name: req.Name}
	if err := h.catalog.CreateProject(r.Context(), project); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, project)
}

// ProductivityTypes lists productivity types
func (h *CatalogHandler) ProductivityTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ProductivityTypes(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, items)
}

// WorkTypes lists work types
func (h *CatalogHandler) WorkTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.WorkTypes(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, items)
}

// Holidays lists holidays in [from, to]
func (h *CatalogHandler) Holidays(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	holidays, err := h.holidays.Between(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, holidays)
}

// CreateHoliday adds a holiday to the calendar
func (h *CatalogHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	date, err := timecalc.ParseDate(req.Date)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	holiday := &repository.Holiday{Date: date, Name: req.Name}
	if err := h.holidays.Create(r.Context(), holiday); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, holiday)
}
