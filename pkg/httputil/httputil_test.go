package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/i18n"
	"github.com/worktime/worktime-backend/pkg/logger"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func TestError_AppErrorStatusAndCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{errors.EmployeeNotFound(7), http.StatusNotFound, errors.CodeEmployeeNotFound},
		{errors.RecordNotFound(3), http.StatusNotFound, errors.CodeRecordNotFound},
		{errors.DateLocked("2025-01-15", "2025-01-31"), http.StatusForbidden, errors.CodeDateLocked},
		{errors.RecordLocked(3), http.StatusForbidden, errors.CodeRecordLocked},
		{errors.InvalidTimeFormat("8am"), http.StatusBadRequest, errors.CodeInvalidTimeFormat},
		{errors.NoFieldsProvided(), http.StatusBadRequest, errors.CodeNoFieldsProvided},
		{errors.SchemaOperationFailed("rename", "t_A_B", fmt.Errorf("boom")), http.StatusInternalServerError, errors.CodeSchemaOperationFailed},
		{fmt.Errorf("wrapped: %w", errors.RecordLocked(9)), http.StatusForbidden, errors.CodeRecordLocked},
		{fmt.Errorf("driver: bad connection"), http.StatusInternalServerError, errors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Error(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rr.Code)
			resp := decode(t, rr)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestError_InternalDoesNotLeakCause(t *testing.T) {
	rr := httptest.NewRecorder()
	Error(rr, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("pq: password authentication failed"))

	assert.NotContains(t, rr.Body.String(), "password")
}

func TestError_Localized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(i18n.WithLocale(req.Context(), i18n.LocaleSlovak))

	rr := httptest.NewRecorder()
	Error(rr, req, errors.RecordLocked(12))

	en := errors.RecordLocked(12).Message
	resp := decode(t, rr)
	assert.NotEqual(t, en, resp.Error.Message)
	assert.Contains(t, resp.Error.Message, "12")
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var body struct {
		Description *string `json:"description"`
	}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"descripton":"typo"}`))

	err := DecodeJSON(req, &body)
	assert.True(t, errors.HasCode(err, errors.CodeBadRequest))
}

func TestValidate_CustomTags(t *testing.T) {
	type payload struct {
		Date  string `json:"date" validate:"required,date"`
		Start string `json:"start_time" validate:"required"`
	}

	require.NoError(t, Validate(payload{Date: "2025-01-15", Start: "08:00"}))

	err := Validate(payload{Date: "15.01.2025"})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errors.CodeValidation, appErr.Code)
	assert.Equal(t, "must be a date in YYYY-MM-DD format", appErr.Details["date"])
	assert.Equal(t, "this field is required", appErr.Details["start_time"])
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Recoverer(logger.NewWithWriter("records-service", &buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	})))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-7")
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, errors.CodeInternal, decode(t, rr).Error.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "panic recovered", entry["message"])
	assert.Equal(t, "req-7", entry["request_id"])
}

func TestLogger_RequestLine(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Logger(logger.NewWithWriter("records-service", &buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
	req.Header.Set("X-Request-ID", "req-8")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "req-8", entry["request_id"])
	assert.Equal(t, "/api/v1/employees", entry["path"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), entry["status"])
	assert.Equal(t, "records-service", entry["service"])
}

func TestRateLimit(t *testing.T) {
	_, err := RateLimit("lots")
	assert.Error(t, err)

	mw, err := RateLimit("2-M")
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
