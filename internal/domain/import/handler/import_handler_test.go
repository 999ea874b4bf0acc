package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financeia/financeia/internal/domain/categorization"
	"github.com/financeia/financeia/internal/domain/import/dedup"
	"github.com/financeia/financeia/internal/domain/import/service"
	"github.com/financeia/financeia/internal/domain/ledger"
	"github.com/financeia/financeia/internal/domain/search"
)

type memLedger struct {
	stored map[string]ledger.Transaction
	order  []string
}

func newMemLedger() *memLedger {
	return &memLedger{stored: make(map[string]ledger.Transaction)}
}

func (m *memLedger) FindByDatesAndAmounts(context.Context, []string, []float64) ([]ledger.Transaction, error) {
	return nil, nil
}

func (m *memLedger) Insert(_ context.Context, tx *ledger.Transaction) error {
	m.stored[tx.ID] = *tx
	m.order = append(m.order, tx.ID)
	return nil
}

func (m *memLedger) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.stored[id]
	return ok, nil
}

func (m *memLedger) GetByID(_ context.Context, id string) (*ledger.Transaction, error) {
	tx, ok := m.stored[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &tx, nil
}

func (m *memLedger) UpdateCategoryByPattern(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (m *memLedger) List(_ context.Context, limit, offset int) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for i := offset; i < len(m.order) && len(out) < limit; i++ {
		out = append(out, m.stored[m.order[i]])
	}
	return out, nil
}

type memRules struct{ rules []categorization.Rule }

func (m *memRules) Create(_ context.Context, rule *categorization.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *memRules) ListAll(context.Context) ([]categorization.Rule, error) {
	return m.rules, nil
}

func newTestHandler(t *testing.T) (*Handler, *memLedger) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	repo := newMemLedger()

	detector := dedup.NewDetector(repo, logger)
	categorizer := categorization.NewService(&memRules{}, repo, logger)
	importer := service.New(repo, detector, categorizer, logger)

	index, err := search.NewIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	reindexer := search.NewReindexer(index, repo, logger)

	return New(importer, categorizer, repo, index, reindexer, logger), repo
}

func newMux(t *testing.T) (*http.ServeMux, *memLedger) {
	t.Helper()
	h, repo := newTestHandler(t)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, repo
}

func multipartUpload(t *testing.T, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

const interUpload = `Extrato Conta Corrente

Data Lançamento;Histórico;Descrição;Valor;Saldo
05/03/2024;PIX;UBER* TRIP;-23,50;1000,00
`

func TestPreviewEndpoint(t *testing.T) {
	mux, repo := newMux(t)

	body, contentType := multipartUpload(t, "extrato.csv", "text/csv", interUpload)
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var preview service.PreviewResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, "inter", string(preview.Bank))
	require.Len(t, preview.Transactions, 1)
	assert.Equal(t, "Transporte", preview.Transactions[0].Category)
	assert.Empty(t, repo.order)
}

func TestPreviewEndpointRejectsUnknownFormat(t *testing.T) {
	mux, _ := newMux(t)

	body, contentType := multipartUpload(t, "extrato.csv", "text/csv", "Data,Valor\n01/01/2024,10\n")
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPreviewEndpointMissingFile(t *testing.T) {
	mux, _ := newMux(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitEndpoint(t *testing.T) {
	mux, repo := newMux(t)

	payload := `{"transacoes":[{"id":"tx-1","data":"2024-03-05","descricao":"Pix enviado - ANA LIMA","valor":150,"tipo":"saida","banco_origem":"inter","arquivo_nome":"extrato.csv"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/import/commit", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result service.CommitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Added)

	stored := repo.stored["tx-1"]
	assert.Equal(t, "Ana", stored.Responsible)
	assert.Equal(t, "Outros", stored.Category)
}

func TestCommitEndpointEmptyBatch(t *testing.T) {
	mux, _ := newMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import/commit", strings.NewReader(`{"transacoes":[]}`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLearnRuleEndpoint(t *testing.T) {
	mux, _ := newMux(t)

	payload := `{"padrao":"uber eats","categoria":"Alimentação"}`
	req := httptest.NewRequest(http.MethodPost, "/api/categorization/rules", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		RuleID string `json:"regra_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RuleID)
}

func TestLearnRuleEndpointRejectsUnknownCategory(t *testing.T) {
	mux, _ := newMux(t)

	payload := `{"padrao":"uber","categoria":"Viagens"}`
	req := httptest.NewRequest(http.MethodPost, "/api/categorization/rules", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSuggestEndpoint(t *testing.T) {
	mux, _ := newMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/categorization/suggest?q=supermercado", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Suggestions []categorization.Suggestion `json:"sugestoes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "Mercado", resp.Suggestions[0].Category)
}

func TestSuggestEndpointMissingQuery(t *testing.T) {
	mux, _ := newMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/categorization/suggest", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactionsEndpoint(t *testing.T) {
	mux, repo := newMux(t)
	require.NoError(t, repo.Insert(context.Background(), &ledger.Transaction{
		ID: "tx-1", Date: "2024-03-05", Description: "A", Category: "Outros",
		Direction: ledger.DirectionOut, Amount: 10,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tx-1")
}

func TestExportEndpoint(t *testing.T) {
	mux, repo := newMux(t)
	require.NoError(t, repo.Insert(context.Background(), &ledger.Transaction{
		ID: "tx-1", Date: "2024-03-05", Description: "UBER TRIP", Category: "Transporte",
		Direction: ledger.DirectionOut, Amount: 23.5,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/export", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "UBER TRIP")
}
