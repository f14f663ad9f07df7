package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"text-pipeline/internal/app"
	"text-pipeline/internal/config"
	"text-pipeline/internal/inference"
	"text-pipeline/internal/logger"
	"text-pipeline/internal/pipeline"
)

func newTestDeps(svc pipeline.Service) app.Deps {
	return app.Deps{
		Pipeline: svc,
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
		},
		Log: logger.Discard(),
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	return result
}

func TestSummarizeHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*pipeline.MockService)
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name: "abstractive summary",
			body: `{"text":"Long article.","method":"abstractive","length":"short"}`,
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "Long article.", "abstractive", "short").Return("Short.", nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"summary": "Short."},
		},
		{
			name: "method and length are optional",
			body: `{"text":"Long article."}`,
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "Long article.", "", "").Return("Medium.", nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"summary": "Medium."},
		},
		{
			name:       "missing text",
			body:       `{"method":"extractive"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"text":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "both models failed",
			body: `{"text":"x"}`,
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "x", "", "").
					Return("", inference.Exhausted("summarization", 2, nil)).Once()
			},
			wantStatus: http.StatusGatewayTimeout,
			wantBody: map[string]any{
				"error": "Timeout: Both summarization models failed.",
				"kind":  "timeout",
			},
		},
		{
			name: "capability unavailable",
			body: `{"text":"x","method":"extractive"}`,
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "x", "extractive", "").
					Return("", inference.Unavailable("extractive summarizer")).Once()
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "blank input",
			body: `{"text":"   "}`,
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "   ", "", "").
					Return("", inference.InvalidInput("summarization")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantBody: map[string]any{
				"error": "Input text is empty! Please provide valid content.",
				"kind":  "invalid",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(pipeline.MockService)
			if tt.setup != nil {
				tt.setup(svc)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			summarizeHandler(newTestDeps(svc))(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantBody != nil {
				assert.Equal(t, tt.wantBody, decodeBody(t, w))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestParaphraseHandler(t *testing.T) {
	svc := new(pipeline.MockService)
	svc.On("ParaphraseMany", mock.Anything, "Hello there.", 2).Return([]string{"Hi there.", "Greetings."}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/paraphrase", strings.NewReader(`{"text":"Hello there.","variants":2}`))
	w := httptest.NewRecorder()
	paraphraseHandler(newTestDeps(svc))(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Hi there.\n\nGreetings.", body["paraphrase"])
	assert.Equal(t, []any{"Hi there.", "Greetings."}, body["variants"])
	svc.AssertExpectations(t)
}

func TestParaphraseHandlerDeterministic(t *testing.T) {
	svc := new(pipeline.MockService)
	svc.On("ParaphraseDeterministic", mock.Anything, "Hello there.").Return("Hi there.", nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/paraphrase", strings.NewReader(`{"text":"Hello there.","deterministic":true}`))
	w := httptest.NewRecorder()
	paraphraseHandler(newTestDeps(svc))(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Hi there.", body["paraphrase"])
	assert.Equal(t, []any{"Hi there."}, body["variants"])
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "ParaphraseMany", mock.Anything, mock.Anything, mock.Anything)
}

func TestParaphraseHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*pipeline.MockService)
		wantStatus int
	}{
		{
			name:       "too many variants",
			body:       `{"text":"x","variants":500}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative variants",
			body:       `{"text":"x","variants":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no generation",
			body: `{"text":"x","variants":1}`,
			setup: func(s *pipeline.MockService) {
				s.On("ParaphraseMany", mock.Anything, "x", 1).
					Return(nil, inference.NoGeneration("paraphraser", "paraphrase", inference.ErrNoGeneration)).Once()
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "deterministic without abstractive",
			body: `{"text":"x","deterministic":true}`,
			setup: func(s *pipeline.MockService) {
				s.On("ParaphraseDeterministic", mock.Anything, "x").
					Return("", inference.Unavailable("deterministic paraphraser")).Once()
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(pipeline.MockService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/paraphrase", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			paraphraseHandler(newTestDeps(svc))(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestSummarizeFileHandler(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
		setup       func(*pipeline.MockService)
		wantStatus  int
	}{
		{
			name:        "text upload",
			filename:    "notes.txt",
			contentType: "text/plain",
			content:     []byte("Hello"),
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "Hello", "extractive", "long").Return("Hi.", nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "missing Content-Type detects from extension",
			filename:    "notes.txt",
			contentType: "",
			content:     []byte("content"),
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "content", "extractive", "long").Return("c.", nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "charset parameter is accepted",
			filename:    "notes.txt",
			contentType: "text/plain; charset=utf-8",
			content:     []byte("content"),
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "content", "extractive", "long").Return("c.", nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "file too large",
			filename:    "large.txt",
			contentType: "text/plain",
			content:     make([]byte, 2*1024*1024), // 2MB
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported extension",
			filename:    "test.docx",
			contentType: "",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported Content-Type",
			filename:    "test.doc",
			contentType: "application/msword",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "summarizer fails",
			filename:    "notes.txt",
			contentType: "text/plain",
			content:     []byte("content"),
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "content", "extractive", "long").
					Return("", inference.APIError("summarization", 413, []byte("too long"))).Once()
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:        "unreadable pdf is rejected",
			filename:    "broken.pdf",
			contentType: "application/pdf",
			content:     []byte("not a pdf"),
			wantStatus:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(pipeline.MockService)
			if tt.setup != nil {
				tt.setup(svc)
			}

			req, err := createMultipartRequest(tt.filename, tt.contentType, tt.content, map[string]string{
				"method": "extractive",
				"length": "long",
			})
			require.NoError(t, err)

			w := httptest.NewRecorder()
			summarizeFileHandler(newTestDeps(svc))(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.filename, decodeBody(t, w)["filename"])
			}
			svc.AssertExpectations(t)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		svc := new(pipeline.MockService)
		req := httptest.NewRequest(http.MethodPost, "/api/summarize/file", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()

		summarizeFileHandler(newTestDeps(svc))(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouterStatusAndHealth(t *testing.T) {
	svc := new(pipeline.MockService)
	svc.On("Status").Return(map[string]bool{"extractive": true, "abstractive": false, "paraphraser": true})

	r := newRouter(newTestDeps(svc), time.Second)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"extractive": true, "abstractive": false, "paraphraser": true}, decodeBody(t, w))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		status     map[string]bool
		wantStatus int
	}{
		{
			name:       "one capability is enough",
			ready:      true,
			status:     map[string]bool{"extractive": false, "abstractive": false, "paraphraser": true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "nothing configured",
			ready:      false,
			status:     map[string]bool{"extractive": false, "abstractive": false, "paraphraser": false},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(pipeline.MockService)
			svc.On("Ready").Return(tt.ready).Once()
			svc.On("Status").Return(tt.status).Once()

			w := httptest.NewRecorder()
			newRouter(newTestDeps(svc), time.Second).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			body := decodeBody(t, w)
			assert.Equal(t, tt.ready, body["ready"])
			assert.Len(t, body["capabilities"], 3)
			svc.AssertExpectations(t)
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		want        string
		ok          bool
	}{
		{"", "a.TXT", "text/plain", true},
		{"", "a.pdf", "application/pdf", true},
		{"", "a.md", "", false},
		{"application/pdf", "whatever", "application/pdf", true},
		{"image/png", "a.png", "", false},
	}
	for _, tt := range tests {
		got, ok := detectContentType(tt.contentType, tt.filename)
		assert.Equal(t, tt.ok, ok, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}

func TestExtractTextRejectsBadPDF(t *testing.T) {
	got, err := extractText("broken.pdf", "application/pdf", []byte("not a pdf"))
	require.Error(t, err)
	assert.Empty(t, got)
	assert.Equal(t, inference.KindInvalid, inference.KindOf(err))
	assert.Contains(t, err.Error(), "broken.pdf")

	got, err = extractText("notes.txt", "text/plain", []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}

func createMultipartRequest(filename, contentType string, content []byte, fields map[string]string) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/summarize/file", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req, nil
}
