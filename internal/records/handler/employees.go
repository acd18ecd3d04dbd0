package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/service"
	"github.com/worktime/worktime-backend/pkg/httputil"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// EmployeeHandler handles employee identity endpoints. Creating, renaming
// and deleting an employee also creates, renames and drops its table.
type EmployeeHandler struct {
	service *service.EmployeeService
	logger  *logger.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(svc *service.EmployeeService, log *logger.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		service: svc,
		logger:  log,
	}
}

// Register mounts the employee routes
func (h *EmployeeHandler) Register(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{employeeID}", h.Get)
		r.Put("/{employeeID}", h.Update)
		r.Delete("/{employeeID}", h.Delete)
		r.Put("/{employeeID}/locked-until", h.SetLockedUntil)
	})
}

// CreateEmployeeRequest is the body of a new employee. ID is set only when
// the identity is imported from an upstream system.
type CreateEmployeeRequest struct {
	ID             int64  `json:"id" validate:"gte=0"`
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	EmploymentType string `json:"employment_type" validate:"omitempty,oneof=full_time part_time contractor agreement"`
}

// UpdateEmployeeRequest replaces the employee's name and employment type
type UpdateEmployeeRequest struct {
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	EmploymentType string `json:"employment_type" validate:"omitempty,oneof=full_time part_time contractor agreement"`
}

// LockedUntilRequest moves the lock threshold; null unlocks everything
type LockedUntilRequest struct {
	LockedUntil *string `json:"locked_until" validate:"omitempty,date"`
}

// List lists employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	if offset < 0 {
		offset = 0
	}

	employees, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, employees, &httputil.Meta{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: int64(offset+limit) < total,
	})
}

// Get gets an employee by ID
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	emp, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, emp)
}

// Create creates an employee and provisions its table
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	emp := &repository.Employee{
		ID:             req.ID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		EmploymentType: req.EmploymentType,
	}
	if err := h.service.Create(r.Context(), emp); err != nil {
		httputil.Error(w, r, err)
		return
	}

	h.logger.WithEmployeeID(emp.ID).Info().Str("table", emp.TableName()).Msg("employee created")
	httputil.Created(w, emp)
}

// Update updates an employee, renaming its table when the name changed
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req UpdateEmployeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	emp, err := h.service.Update(r.Context(), id, service.EmployeeUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		EmploymentType: req.EmploymentType,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, emp)
}

// Delete drops the employee's table and identity
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// SetLockedUntil moves the date up to which records are locked
func (h *EmployeeHandler) SetLockedUntil(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req LockedUntilRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	until, err := optionalDate(req.LockedUntil)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	emp, err := h.service.SetLockedUntil(r.Context(), id, until)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, emp)
}
