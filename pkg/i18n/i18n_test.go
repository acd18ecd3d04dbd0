package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAcceptLanguage(t *testing.T) {
	tests := map[string]string{
		"":               LocaleEnglish,
		"en-US,en;q=0.9": LocaleEnglish,
		"sk-SK,sk;q=0.9": LocaleSlovak,
		"cs":             LocaleSlovak,
		"en-GB,cs;q=0.8": LocaleSlovak,
		"de-DE,de;q=0.9": LocaleEnglish,
	}
	for header, want := range tests {
		assert.Equal(t, want, ParseAcceptLanguage(header), header)
	}
}

func TestT_InterpolatesParams(t *testing.T) {
	got := T("errors.date_locked", map[string]string{"date": "2025-01-15", "locked_until": "2025-01-31"})
	assert.Equal(t, "date 2025-01-15 is locked (locked until 2025-01-31)", got)
}

func TestT_FallsBackToKey(t *testing.T) {
	assert.Equal(t, "errors.nope", T("errors.nope"))
}

func TestTWithLocale_SlovakCatalog(t *testing.T) {
	got := TWithLocale(LocaleSlovak, "errors.record_locked", map[string]string{"id": "4"})
	assert.Equal(t, "záznam 4 je uzamknutý", got)
}

func TestNewLocalizer_UnknownLocaleIsEnglish(t *testing.T) {
	assert.Equal(t, LocaleEnglish, NewLocalizer("fr").GetLocale())
}

func TestMiddleware(t *testing.T) {
	var locale string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = GetLocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "sk")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, LocaleSlovak, locale)
	assert.Equal(t, DefaultLocale, GetLocaleFromContext(context.Background()))
}
