// Package handler exposes the import pipeline over a small JSON HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/financeia/financeia/internal/domain/categorization"
	"github.com/financeia/financeia/internal/domain/import/parser"
	"github.com/financeia/financeia/internal/domain/import/service"
	"github.com/financeia/financeia/internal/domain/ledger"
	"github.com/financeia/financeia/internal/domain/search"
)

const maxUploadBytes = 10 << 20 // 10 MiB statements are already enormous

type Handler struct {
	importer    *service.Service
	categorizer *categorization.Service
	ledger      ledger.Repository
	searchIndex *search.Index
	reindexer   *search.Reindexer
	logger      *slog.Logger
}

func New(
	importer *service.Service,
	categorizer *categorization.Service,
	repo ledger.Repository,
	searchIndex *search.Index,
	reindexer *search.Reindexer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		importer:    importer,
		categorizer: categorizer,
		ledger:      repo,
		searchIndex: searchIndex,
		reindexer:   reindexer,
		logger:      logger,
	}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/import/preview", h.Preview)
	mux.HandleFunc("POST /api/import/commit", h.Commit)
	mux.HandleFunc("POST /api/categorization/rules", h.LearnRule)
	mux.HandleFunc("GET /api/categorization/suggest", h.Suggest)
	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/transactions", h.ListTransactions)
	mux.HandleFunc("GET /api/transactions/export", h.ExportTransactions)
}

// Preview accepts a multipart upload under "file" and returns the parsed,
// deduplicated, pre-categorized batch for review.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	contentType := header.Header.Get("Content-Type")
	preview, err := h.importer.Preview(r.Context(), header.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFormat) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.serverError(w, "preview failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, preview)
}

type commitRequest struct {
	Transactions []parser.ExtractedTransaction `json:"transacoes"`
}

// Commit persists a reviewed batch and refreshes the search index.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Transactions) == 0 {
		h.writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	result, err := h.importer.Commit(r.Context(), req.Transactions)
	if err != nil {
		h.serverError(w, "commit failed", err)
		return
	}

	// Index refresh happens off the request path; the nightly job catches
	// anything this misses.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := h.reindexer.Reindex(ctx); err != nil {
			h.logger.Warn("post-commit reindex failed", slog.Any("error", err))
		}
	}()

	h.writeJSON(w, http.StatusOK, result)
}

type learnRuleRequest struct {
	Pattern   string `json:"padrao"`
	Category  string `json:"categoria"`
	MatchKind string `json:"tipo_match"`
}

type learnRuleResponse struct {
	RuleID     string `json:"regra_id"`
	Backfilled int64  `json:"retroativas"`
}

// LearnRule persists a categorization rule and reports how many stored
// transactions it back-applied to.
func (h *Handler) LearnRule(w http.ResponseWriter, r *http.Request) {
	var req learnRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	rule, backfilled, err := h.categorizer.LearnRule(r.Context(), req.Pattern, req.Category, req.MatchKind)
	if err != nil {
		if errors.Is(err, categorization.ErrUnknownCategory) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, learnRuleResponse{RuleID: rule.ID, Backfilled: backfilled})
}

// Suggest proposes categories for a free-text description (?q=).
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := queryInt(r, "limit", 5)

	suggestions, err := h.categorizer.Suggest(r.Context(), query, limit)
	if err != nil {
		h.serverError(w, "suggest failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"sugestoes": suggestions,
	})
}

// Search runs a full-text query over stored transactions (?q=).
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := queryInt(r, "limit", 20)

	results, err := h.searchIndex.Search(query, limit)
	if err != nil {
		h.serverError(w, "search failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"resultados": results})
}

// ListTransactions pages through the ledger (?limit=&offset=).
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	transactions, err := h.ledger.List(r.Context(), limit, offset)
	if err != nil {
		h.serverError(w, "list failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"lancamentos": transactions})
}

// ExportTransactions streams the whole ledger as a CSV download.
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lancamentos.csv"`)
	if err := ledger.ExportCSV(r.Context(), h.ledger, w); err != nil {
		// Headers are out; all that is left is the log line.
		h.logger.Error("csv export failed", slog.Any("error", err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("write response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"erro": message})
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	h.writeError(w, http.StatusInternalServerError, message)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
