package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text-pipeline/internal/inference"
	"text-pipeline/internal/logger"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind inference.Kind
		want int
	}{
		{inference.KindConfig, http.StatusServiceUnavailable},
		{inference.KindInvalid, http.StatusBadRequest},
		{inference.KindPermanent, http.StatusBadGateway},
		{inference.KindTransient, http.StatusBadGateway},
		{inference.KindEmpty, http.StatusBadGateway},
		{inference.KindTimeout, http.StatusGatewayTimeout},
		{inference.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/summarize", nil)
	rec := httptest.NewRecorder()

	WriteError(logger.Discard(), rec, req, inference.Exhausted("summarization", 2, nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Timeout: Both summarization models failed.", body.Error)
	assert.Equal(t, "timeout", body.Kind)
}

func TestWriteErrorUntyped(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(logger.Discard(), rec, req, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type sample struct {
	Text     string `json:"text" validate:"required"`
	Variants int    `json:"variants" validate:"min=0,max=10"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{"valid", `{"text":"hello","variants":3}`, nil},
		{"missing text", `{"variants":3}`, []string{"text"}},
		{"too many variants", `{"text":"x","variants":11}`, []string{"variants"}},
		{"not json", `{"text":`, []string{"body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var s sample
			err := DecodeJSON(rec, req, 1<<10, &s)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, "hello", s.Text)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.wantFields {
				assert.Contains(t, verr.Fields, f)
			}

			WriteError(logger.Discard(), rec, req, err)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDecodeJSONBodyLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"`+strings.Repeat("a", 100)+`"}`))
	rec := httptest.NewRecorder()

	var s sample
	assert.Error(t, DecodeJSON(rec, req, 16, &s))
}

func TestRouterRecoversAndServesHealth(t *testing.T) {
	r := NewRouter(logger.Discard(), 0)
	r.Get("/healthz", HealthHandler(logger.Discard()))
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(logger.Discard(), rec, "upload too large", errors.New("limit"), http.StatusRequestEntityTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "upload too large", body.Error)
}
