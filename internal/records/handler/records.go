package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/service"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/httputil"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// RecordHandler handles work record endpoints of one employee
type RecordHandler struct {
	service *service.RecordService
	logger  *logger.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(svc *service.RecordService, log *logger.Logger) *RecordHandler {
	return &RecordHandler{
		service: svc,
		logger:  log,
	}
}

// Register mounts the record routes under /employees/{employeeID}/records
func (h *RecordHandler) Register(r chi.Router) {
	r.Route("/employees/{employeeID}/records", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/next-date", h.NextDate)
		r.Post("/approve-range", h.ApproveRange)
		r.Get("/{recordID}", h.Get)
		r.Patch("/{recordID}", h.Update)
		r.Delete("/{recordID}", h.Delete)
	})
}

// RecordRequest is the body of a new record
type RecordRequest struct {
	Date               string           `json:"date" validate:"required,date"`
	ActivityTypeID     int64            `json:"activity_type_id" validate:"required,gt=0"`
	ProjectID          *int64           `json:"project_id" validate:"omitempty,gt=0"`
	ProductivityTypeID *int64           `json:"productivity_type_id" validate:"omitempty,gt=0"`
	WorkTypeID         *int64           `json:"work_type_id" validate:"omitempty,gt=0"`
	StartTime          string           `json:"start_time" validate:"required"`
	EndTime            string           `json:"end_time" validate:"required"`
	Description        *string          `json:"description" validate:"omitempty,max=2000"`
	Distance           *decimal.Decimal `json:"distance"`
	IsTrip             bool             `json:"is_trip"`
}

func (req *RecordRequest) input() (service.RecordInput, error) {
	date, err := timecalc.ParseDate(req.Date)
	if err != nil {
		return service.RecordInput{}, err
	}
	return service.RecordInput{
		Date:               date,
		ActivityTypeID:     req.ActivityTypeID,
		ProjectID:          req.ProjectID,
		ProductivityTypeID: req.ProductivityTypeID,
		WorkTypeID:         req.WorkTypeID,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Description:        req.Description,
		Distance:           req.Distance,
		IsTrip:             req.IsTrip,
	}, nil
}

// RecordPatchRequest is the body of a partial record update
type RecordPatchRequest struct {
	Date               *string                    `json:"date" validate:"omitempty,date"`
	ActivityTypeID     *int64                     `json:"activity_type_id" validate:"omitempty,gt=0"`
	ProjectID          repository.Nullable[int64] `json:"project_id"`
	ProductivityTypeID repository.Nullable[int64] `json:"productivity_type_id"`
	WorkTypeID         repository.Nullable[int64] `json:"work_type_id"`
	StartTime          *string                    `json:"start_time"`
	EndTime            *string                    `json:"end_time"`
	Description        *string                    `json:"description" validate:"omitempty,max=2000"`
	Distance           *decimal.Decimal           `json:"distance"`
	IsTrip             *bool                      `json:"is_trip"`
}

func (req *RecordPatchRequest) patch() (repository.WorkRecordPatch, error) {
	date, err := optionalDate(req.Date)
	if err != nil {
		return repository.WorkRecordPatch{}, err
	}

	// null clears a reference; a present id must still be positive
	details := map[string]string{}
	for field, ref := range map[string]repository.Nullable[int64]{
		"project_id":           req.ProjectID,
		"productivity_type_id": req.ProductivityTypeID,
		"work_type_id":         req.WorkTypeID,
	} {
		if ref.Valid && ref.Value <= 0 {
			details[field] = "must be greater than 0"
		}
	}
	if len(details) > 0 {
		return repository.WorkRecordPatch{}, errors.Validation(details)
	}
	return repository.WorkRecordPatch{
		Date:               date,
		ActivityTypeID:     req.ActivityTypeID,
		ProjectID:          req.ProjectID,
		ProductivityTypeID: req.ProductivityTypeID,
		WorkTypeID:         req.WorkTypeID,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Description:        req.Description,
		Distance:           req.Distance,
		IsTrip:             req.IsTrip,
	}, nil
}

// ApproveRangeRequest fills every working day of [from, to] with the template
type ApproveRangeRequest struct {
	From               string  `json:"from" validate:"required,date"`
	To                 string  `json:"to" validate:"required,date"`
	ActivityTypeID     int64   `json:"activity_type_id" validate:"required,gt=0"`
	ProjectID          *int64  `json:"project_id" validate:"omitempty,gt=0"`
	ProductivityTypeID *int64  `json:"productivity_type_id" validate:"omitempty,gt=0"`
	WorkTypeID         *int64  `json:"work_type_id" validate:"omitempty,gt=0"`
	StartTime          string  `json:"start_time" validate:"required"`
	EndTime            string  `json:"end_time" validate:"required"`
	Description        *string `json:"description" validate:"omitempty,max=2000"`
}

// List returns one page of records in [from, to]
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	params := service.QueryParams{Sort: r.URL.Query().Get("sort")}
	if params.From, err = queryDate(r, "from"); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if params.To, err = queryDate(r, "to"); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if params.Limit, err = queryInt(r, "limit", 0); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if params.Offset, err = queryInt(r, "offset", 0); err != nil {
		httputil.Error(w, r, err)
		return
	}

	result, err := h.service.Query(r.Context(), employeeID, params)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, result, &httputil.Meta{
		Limit:   result.Limit,
		Offset:  result.Offset,
		Total:   result.TotalCount,
		HasMore: result.HasMore,
	})
}

// Get returns one record
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeID, recordID, err := recordPath(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rec, err := h.service.Get(r.Context(), employeeID, recordID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Create adds a record
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req RecordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	in, err := req.input()
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rec, err := h.service.Create(r.Context(), employeeID, in)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, rec)
}

// Update applies a partial update
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	employeeID, recordID, err := recordPath(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req RecordPatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	patch, err := req.patch()
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	rec, err := h.service.Update(r.Context(), employeeID, recordID, patch)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Delete removes a record
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID, recordID, err := recordPath(r)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), employeeID, recordID); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// NextDate suggests the date of the employee's next record
func (h *RecordHandler) NextDate(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	date, err := h.service.NextRecordDate(r.Context(), employeeID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]timecalc.Date{"date": date})
}

// ApproveRange inserts the template on every open working day of the range
func (h *RecordHandler) ApproveRange(w http.ResponseWriter, r *http.Request) {
	employeeID, err := pathID(r, "employeeID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req ApproveRangeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	from, err := timecalc.ParseDate(req.From)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	to, err := timecalc.ParseDate(req.To)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	created, err := h.service.ApproveRange(r.Context(), employeeID, from, to, service.RecordInput{
		ActivityTypeID:     req.ActivityTypeID,
		ProjectID:          req.ProjectID,
		ProductivityTypeID: req.ProductivityTypeID,
		WorkTypeID:         req.WorkTypeID,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Description:        req.Description,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	h.logger.WithEmployeeID(employeeID).Info().
		Str("from", req.From).
		Str("to", req.To).
		Int("created", len(created)).
		Msg("range approved")

	httputil.Created(w, created)
}

func recordPath(r *http.Request) (employeeID, recordID int64, err error) {
	if employeeID, err = pathID(r, "employeeID"); err != nil {
		return 0, 0, err
	}
	if recordID, err = pathID(r, "recordID"); err != nil {
		return 0, 0, err
	}
	return employeeID, recordID, nil
}
