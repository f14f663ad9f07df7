package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ledongthuc/pdf"

	"text-pipeline/internal/app"
	"text-pipeline/internal/httputil"
	"text-pipeline/internal/inference"
	"text-pipeline/internal/pipeline"
)

// maxJSONBody caps JSON request bodies; uploads use MaxUploadSize.
const maxJSONBody = 1 << 20

type summarizeRequest struct {
	Text   string `json:"text" validate:"required"`
	Method string `json:"method" validate:"omitempty,max=32"`
	Length string `json:"length" validate:"omitempty,max=32"`
}

type paraphraseRequest struct {
	Text          string `json:"text" validate:"required"`
	Variants      int    `json:"variants" validate:"gte=0,lte=50"`
	Deterministic bool   `json:"deterministic"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Summaries may wait out model warm-up on two candidates.
	timeout := 2*deps.Config.ReadyMaxWait + 2*deps.Config.RequestTimeout
	r := newRouter(deps, timeout)

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway starting", "addr", addr, "status", deps.Pipeline.Status())
	if !deps.Pipeline.Ready() {
		deps.Log.Warn("no capability is configured; /readyz will answer 503")
	}
	if err := httputil.Serve(ctx, deps.Log, addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func newRouter(deps app.Deps, timeout time.Duration) *chi.Mux {
	r := httputil.NewRouter(deps.Log, timeout)
	r.Post("/api/summarize", summarizeHandler(deps))
	r.Post("/api/summarize/file", summarizeFileHandler(deps))
	r.Post("/api/paraphrase", paraphraseHandler(deps))
	r.Get("/api/status", statusHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Get("/readyz", readyHandler(deps))
	return r
}

func summarizeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req summarizeRequest
		if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
			httputil.WriteError(deps.Log, w, r, err)
			return
		}
		summary, err := deps.Pipeline.Summarize(r.Context(), req.Text, req.Method, req.Length)
		if err != nil {
			httputil.WriteError(deps.Log, w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"summary": summary})
	}
}

func summarizeFileHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType, ok := detectContentType(header.Header.Get("Content-Type"), header.Filename)
		if !ok {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF and TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := extractText(header.Filename, contentType, content)
		if err != nil {
			httputil.WriteError(deps.Log.With("filename", header.Filename), w, r, err)
			return
		}

		summary, err := deps.Pipeline.Summarize(r.Context(), text, r.FormValue("method"), r.FormValue("length"))
		if err != nil {
			httputil.WriteError(deps.Log.With("filename", header.Filename), w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"summary":  summary,
			"filename": header.Filename,
		})
	}
}

func paraphraseHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paraphraseRequest
		err := httputil.DecodeJSON(w, r, maxJSONBody, &req)
		if err != nil {
			httputil.WriteError(deps.Log, w, r, err)
			return
		}
		var variants []string
		if req.Deterministic {
			var out string
			out, err = deps.Pipeline.ParaphraseDeterministic(r.Context(), req.Text)
			variants = []string{out}
		} else {
			variants, err = deps.Pipeline.ParaphraseMany(r.Context(), req.Text, req.Variants)
		}
		if err != nil {
			httputil.WriteError(deps.Log, w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"paraphrase": strings.Join(variants, pipeline.VariantSeparator),
			"variants":   variants,
		})
	}
}

func statusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, deps.Pipeline.Status())
	}
}

// readyHandler answers 503 while no capability is configured.
func readyHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		ready := deps.Pipeline.Ready()
		if !ready {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, map[string]any{
			"ready":        ready,
			"capabilities": deps.Pipeline.Status(),
		})
	}
}

// detectContentType accepts plain text and PDF, falling back to the extension
// when the part carries no Content-Type.
func detectContentType(contentType, filename string) (string, bool) {
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".txt":
			contentType = "text/plain"
		case ".pdf":
			contentType = "application/pdf"
		default:
			return "", false
		}
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	switch contentType {
	case "text/plain", "application/pdf":
		return contentType, true
	default:
		return "", false
	}
}

// extractText extracts text from uploaded files, with PDF support. A PDF
// that cannot be parsed is rejected as invalid input.
func extractText(filename, contentType string, content []byte) (string, error) {
	if contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		text, err := extractPDF(content)
		if err != nil {
			return "", &inference.Error{
				Kind:    inference.KindInvalid,
				Task:    "summarization",
				Message: fmt.Sprintf("Could not read PDF %q: %v", filename, err),
				Err:     err,
			}
		}
		return text, nil
	}
	// Treat other files as plain text
	return string(content), nil
}

func extractPDF(content []byte) (string, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
