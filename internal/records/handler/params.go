package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/errors"
)

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid " + name).WithDetails(map[string]string{name: raw})
	}
	return id, nil
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequest("invalid " + name).WithDetails(map[string]string{name: raw})
	}
	return n, nil
}

func queryDate(r *http.Request, name string) (timecalc.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return timecalc.Date{}, errors.Validation(map[string]string{name: "this field is required"})
	}
	return timecalc.ParseDate(raw)
}

func optionalDate(value *string) (*timecalc.Date, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, err := timecalc.ParseDate(*value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
