package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/scamsniper/internal/domain"
	"github.com/opensource-finance/scamsniper/internal/repository"
	"github.com/opensource-finance/scamsniper/internal/rules"
	"github.com/opensource-finance/scamsniper/internal/scoring"
)

// Client-facing capability messages.
const (
	msgOCRUnavailable  = "OCR service not available. Ensure an OCR service is configured."
	msgNoText          = "No readable text found in image."
	msgOCRNotDeployed  = "OCR not available in this deployment"
	defaultUploadLimit = 10 << 20
)

// Handler holds dependencies for API handlers.
type Handler struct {
	scoring   *scoring.Service
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *rules.Engine
	version   string
	maxUpload int64
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultUploadLimit
	}
	return &Handler{
		scoring:   deps.Scoring,
		repo:      deps.Repo,
		cache:     deps.Cache,
		bus:       deps.Bus,
		engine:    deps.Rules,
		version:   deps.Version,
		maxUpload: maxUpload,
	}
}

// Root reports the service banner and capability availability.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "ScamSniper API is running",
		"ocr_available": h.scoring.OCRAvailable(),
		"ml_available":  h.scoring.MLAvailable(),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ClassifyRequest is the request body for POST /api/classify.
type ClassifyRequest struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Classify handles POST /api/classify.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// empty input is scored like any other text
	writeJSON(w, http.StatusOK, h.scoring.ScoreTextAndURL(r.Context(), req.Text, req.URL))
}

// CheckEmail handles POST /api/email/check.
func (h *Handler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var msg domain.EmailMessage
	if !decodeJSON(w, r, &msg) {
		return
	}
	if msg.Sender == "" {
		writeError(w, http.StatusBadRequest, "sender is required")
		return
	}

	writeJSON(w, http.StatusOK, h.scoring.ScoreEmail(r.Context(), msg))
}

// ScanOCR handles POST /api/ocr/scan with a multipart "file" field.
func (h *Handler) ScanOCR(w http.ResponseWriter, r *http.Request) {
	if !h.scoring.OCRAvailable() {
		writeError(w, http.StatusServiceUnavailable, msgOCRUnavailable)
		return
	}

	up, ok := h.readUpload(w, r, true)
	if !ok {
		return
	}

	res, err := h.scoring.ScanImage(r.Context(), up.data)
	switch {
	case errors.Is(err, scoring.ErrOCRUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgOCRUnavailable)
	case errors.Is(err, scoring.ErrNoText):
		writeError(w, http.StatusUnprocessableEntity, msgNoText)
	case err != nil:
		slog.Error("ocr scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ocr scan failed")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// ValidateTransaction handles POST /api/transaction/validate.
func (h *Handler) ValidateTransaction(w http.ResponseWriter, r *http.Request) {
	var rec domain.TransactionRecord
	if !decodeJSON(w, r, &rec) {
		return
	}

	writeJSON(w, http.StatusOK, h.scoring.ValidateTransaction(r.Context(), rec))
}

// CheckTransactionImage handles POST /api/transaction/check-image with a
// multipart "file" and an optional "transaction_json" field.
func (h *Handler) CheckTransactionImage(w http.ResponseWriter, r *http.Request) {
	if !h.scoring.OCRAvailable() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":     "error",
			"message":    msgOCRNotDeployed,
			"risk_score": nil,
		})
		return
	}

	up, ok := h.readUpload(w, r, true)
	if !ok {
		return
	}

	res, err := h.scoring.CheckTransactionImage(r.Context(), up.data, up.form.Get("transaction_json"))
	if err != nil {
		slog.Error("transaction image check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":     "error",
			"message":    err.Error(),
			"risk_score": nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ReportRequest is the request body for POST /api/report.
type ReportRequest struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// CreateReport handles POST /api/report.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	var req ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rep := &domain.Report{Text: req.Text, Category: req.Category}
	if err := h.repo.SaveReport(r.Context(), rep); err != nil {
		writeStoreError(w, "save report", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Reported successfully",
		"report_id": rep.ID,
	})
}

// ListReports handles GET /api/report/all.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	reports, err := h.repo.ListReports(r.Context())
	if err != nil {
		writeStoreError(w, "list reports", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(reports))
}

// ListReportsByCategory handles GET /api/report/category/{category}.
func (h *Handler) ListReportsByCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	reports, err := h.repo.ListReportsByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeStoreError(w, "list reports", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(reports))
}

// FeedbackRequest is the request body for POST /api/feedback.
type FeedbackRequest struct {
	Message string `json:"message"`
}

// CreateFeedback handles POST /api/feedback.
func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	var req FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	fb := &domain.Feedback{Message: req.Message}
	if err := h.repo.SaveFeedback(r.Context(), fb); err != nil {
		writeStoreError(w, "save feedback", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Feedback submitted",
		"id":        fb.ID,
		"timestamp": fb.Timestamp,
	})
}

// ListFeedback handles GET /api/feedback/all.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	items, err := h.repo.ListFeedback(r.Context())
	if err != nil {
		writeStoreError(w, "list feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// ScanRequest is the request body for POST /api/scan.
type ScanRequest struct {
	Type    string  `json:"type"`
	Input   string  `json:"input"`
	Verdict string  `json:"verdict"`
	Score   float64 `json:"score"`
	When    int64   `json:"when,omitempty"` // unix milliseconds
}

// CreateScan handles POST /api/scan. Exact duplicates are acknowledged but
// stored once.
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	var req ScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" || req.Verdict == "" {
		writeError(w, http.StatusBadRequest, "type and verdict are required")
		return
	}

	scan := &domain.Scan{
		Type:      req.Type,
		Input:     req.Input,
		Verdict:   req.Verdict,
		Score:     int(math.Round(req.Score)),
		Timestamp: req.When,
	}
	stored, err := h.repo.SaveScan(r.Context(), scan)
	if err != nil {
		writeStoreError(w, "save scan", err)
		return
	}
	if !stored {
		slog.Debug("duplicate scan skipped", "timestamp", scan.Timestamp)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Scan saved successfully",
		"scan_id": scan.ID,
	})
}

// ListScans handles GET /api/scan/all.
func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	scans, err := h.repo.ListScans(r.Context())
	if err != nil {
		writeStoreError(w, "list scans", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(scans))
}

// CreateSupportTicket handles POST /api/support with a multipart "text"
// field and an optional "file".
func (h *Handler) CreateSupportTicket(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	up, ok := h.readUpload(w, r, false)
	if !ok {
		return
	}
	text := up.form.Get("text")
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	ticket := &domain.SupportTicket{Text: text, Filename: up.filename}
	if err := h.repo.SaveSupportTicket(r.Context(), ticket); err != nil {
		writeStoreError(w, "save support ticket", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Support ticket submitted",
		"support_id": ticket.ID,
	})
}

// ListSupportTickets handles GET /api/support/all.
func (h *Handler) ListSupportTickets(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	tickets, err := h.repo.ListSupportTickets(r.Context())
	if err != nil {
		writeStoreError(w, "list support tickets", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tickets))
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	settings, err := h.repo.GetSettings(r.Context())
	if err != nil {
		writeStoreError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SettingRequest is the request body for POST /api/settings.
type SettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpdateSetting handles POST /api/settings. Only existing keys can change.
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	var req SettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.repo.UpdateSetting(r.Context(), req.Key, req.Value)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Invalid setting key")
		return
	}
	if err != nil {
		writeStoreError(w, "update setting", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"key":     req.Key,
		"value":   req.Value,
	})
}

// ListRules returns the operator rules currently loaded in the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /api/rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loaded,
		"count":  len(loaded),
		"source": "database",
	})
}

// GetRule retrieves a stored rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	// disabled rules are stored but not loaded
	if h.repo != nil {
		rule, err := h.repo.GetRuleConfig(r.Context(), ruleID)
		if err == nil {
			writeJSON(w, http.StatusOK, rule)
			return
		}
		if !errors.Is(err, repository.ErrNotFound) {
			writeStoreError(w, "get rule", err)
			return
		}
	}

	writeError(w, http.StatusNotFound, "rule not found")
}

// CreateRule validates and stores an operator rule.
// After saving, call POST /api/rules/reload to apply it.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	var rule domain.RuleConfig
	if !decodeJSON(w, r, &rule) {
		return
	}
	if rule.ID == "" || rule.Name == "" || rule.Expression == "" {
		writeError(w, http.StatusBadRequest, "id, name, and expression are required")
		return
	}

	if err := h.engine.ValidateRule(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid CEL expression: "+err.Error())
		return
	}

	if err := h.repo.SaveRuleConfig(r.Context(), &rule); err != nil {
		writeStoreError(w, "save rule", err)
		return
	}

	slog.Info("rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    rule,
		"message": "Rule created. Call POST /api/rules/reload to apply changes.",
	})
}

// ReloadRules reloads all rules from the database into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	dbRules, err := h.repo.ListRuleConfigs(r.Context())
	if err != nil {
		writeStoreError(w, "list rules", err)
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload rules: "+err.Error())
		return
	}

	slog.Info("rules reloaded from database", "count", h.engine.RulesCount())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   h.engine.RulesCount(),
	})
}

// upload is a parsed multipart request.
type upload struct {
	data     []byte
	filename string
	form     url.Values
}

// readUpload parses a multipart form. With requireFile the "file" part must
// be present.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, requireFile bool) (upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return upload{}, false
	}
	up := upload{form: url.Values(r.MultipartForm.Value)}

	file, header, err := r.FormFile("file")
	if err != nil {
		if requireFile {
			writeError(w, http.StatusBadRequest, "file is required")
			return upload{}, false
		}
		return up, true
	}
	defer file.Close()

	up.filename = header.Filename
	up.data, err = io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return upload{}, false
	}
	return up, true
}

func (h *Handler) requireRepo(w http.ResponseWriter) bool {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.Error("repository operation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
