package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/collector"
	"github.com/klimeurt/repolens/internal/workspace"
	"go.uber.org/zap"
)

// maxBodyBytes bounds form and JSON request bodies
const maxBodyBytes = 64 << 10

type indexPage struct {
	RepoURL string
}

type resultPage struct {
	Report *analyzer.Report
}

type errorPage struct {
	Message string
	RepoURL string
}

type analyzeRequest struct {
	RepoURL string `json:"repo_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", indexPage{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "error", errorPage{Message: "Could not read the submitted form."})
		return
	}

	repoURL := strings.TrimSpace(r.PostFormValue("repo_url"))
	report, err := s.analyze(r.Context(), repoURL)
	if err != nil {
		status := statusFor(err)
		s.logFailure(status, repoURL, err)
		s.render(w, status, "error", errorPage{Message: userMessage(status), RepoURL: repoURL})
		return
	}

	s.render(w, http.StatusOK, "result", resultPage{Report: report})
}

func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be JSON with a repo_url field"})
		return
	}

	report, err := s.analyze(r.Context(), strings.TrimSpace(req.RepoURL))
	if err != nil {
		status := statusFor(err)
		s.logFailure(status, req.RepoURL, err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// statusFor maps analysis errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, collector.ErrInvalidRepoURL):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrClone):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "That does not look like a GitHub repository URL. Use https://github.com/owner/repo."
	case http.StatusBadGateway:
		return "The repository could not be cloned. Check that it exists and is public."
	default:
		return "Something went wrong while analyzing the repository."
	}
}

func (s *Server) logFailure(status int, repoURL string, err error) {
	log := s.logger.Warn
	if status == http.StatusInternalServerError {
		log = s.logger.Error
	}
	log("Analysis failed", zap.String("repo_url", repoURL), zap.Int("status", status), zap.Error(err))
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, status int, page string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("Failed to render template", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
