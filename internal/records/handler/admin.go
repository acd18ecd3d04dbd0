package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/worktime/worktime-backend/internal/records/service"
	"github.com/worktime/worktime-backend/pkg/httputil"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// AdminHandler exposes maintenance of the per-employee tables
type AdminHandler struct {
	lifecycle *service.TableLifecycle
	logger    *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(lifecycle *service.TableLifecycle, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycle,
		logger:    log,
	}
}

// Register mounts the admin routes
func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/aggregate-view/rebuild", h.RebuildView)
		r.Get("/tables", h.Tables)
	})
}

// RebuildView rebuilds the aggregate view and reports identity/table drift
func (h *AdminHandler) RebuildView(w http.ResponseWriter, r *http.Request) {
	report, err := h.lifecycle.Reconcile(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// Tables lists the per-employee tables found in the schema
func (h *AdminHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.lifecycle.ListTables(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tables)
}
