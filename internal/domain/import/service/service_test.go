package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financeia/financeia/internal/domain/categorization"
	"github.com/financeia/financeia/internal/domain/import/dedup"
	"github.com/financeia/financeia/internal/domain/import/parser"
	"github.com/financeia/financeia/internal/domain/ledger"
)

type fakeLedger struct {
	stored map[string]ledger.Transaction
	order  []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{stored: make(map[string]ledger.Transaction)}
}

func (f *fakeLedger) FindByDatesAndAmounts(_ context.Context, dates []string, amounts []float64) ([]ledger.Transaction, error) {
	dateSet := make(map[string]bool, len(dates))
	for _, d := range dates {
		dateSet[d] = true
	}
	amountSet := make(map[float64]bool, len(amounts))
	for _, a := range amounts {
		amountSet[a] = true
	}
	var out []ledger.Transaction
	for _, id := range f.order {
		tx := f.stored[id]
		if dateSet[tx.Date] && amountSet[tx.Amount] {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedger) Insert(_ context.Context, tx *ledger.Transaction) error {
	f.stored[tx.ID] = *tx
	f.order = append(f.order, tx.ID)
	return nil
}

func (f *fakeLedger) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.stored[id]
	return ok, nil
}

func (f *fakeLedger) GetByID(_ context.Context, id string) (*ledger.Transaction, error) {
	tx, ok := f.stored[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &tx, nil
}

func (f *fakeLedger) UpdateCategoryByPattern(_ context.Context, _, _ string) (int64, error) {
	return 0, nil
}

func (f *fakeLedger) List(_ context.Context, limit, offset int) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for i := offset; i < len(f.order) && len(out) < limit; i++ {
		out = append(out, f.stored[f.order[i]])
	}
	return out, nil
}

type fakeRules struct{ rules []categorization.Rule }

func (f *fakeRules) Create(_ context.Context, rule *categorization.Rule) error {
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRules) ListAll(_ context.Context) ([]categorization.Rule, error) {
	return f.rules, nil
}

func newTestService(repo *fakeLedger) *Service {
	logger := slog.New(slog.DiscardHandler)
	detector := dedup.NewDetector(repo, logger)
	categorizer := categorization.NewService(&fakeRules{}, repo, logger)
	return New(repo, detector, categorizer, logger)
}

const interUpload = `Extrato Conta Corrente

Data Lançamento;Histórico;Descrição;Valor;Saldo
05/03/2024;PIX;UBER* TRIP;-23,50;1000,00
06/03/2024;Pix recebido;DAVI MIRANDA;500,00;1500,00
`

func TestPreviewInterCSV(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	preview, err := svc.Preview(context.Background(), "extrato.csv", "text/csv", []byte(interUpload))
	require.NoError(t, err)

	assert.Equal(t, "inter", string(preview.Bank))
	require.Len(t, preview.Transactions, 2)
	assert.Zero(t, preview.Duplicates)
	// Categories are pre-filled from the keyword table.
	assert.Equal(t, "Transporte", preview.Transactions[0].Category)
	// Nothing persisted on preview.
	assert.Empty(t, repo.order)
}

func TestPreviewFlagsAndSkipsDuplicates(t *testing.T) {
	repo := newFakeLedger()
	require.NoError(t, repo.Insert(context.Background(), &ledger.Transaction{
		ID:          "existing",
		Date:        "2024-03-05",
		Description: "PIX - UBER* TRIP",
		Amount:      23.50,
		Direction:   ledger.DirectionOut,
	}))
	svc := newTestService(repo)

	preview, err := svc.Preview(context.Background(), "extrato.csv", "text/csv", []byte(interUpload))
	require.NoError(t, err)

	assert.Equal(t, 1, preview.Duplicates)
	assert.True(t, preview.Transactions[0].IsDuplicate)
	assert.Equal(t, "existing", preview.Transactions[0].ExistingID)
	// Duplicates are not categorized.
	assert.Empty(t, preview.Transactions[0].Category)
}

func TestPreviewNubankByFilename(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	upload := "Data,Valor,Identificador,Descrição\n10/03/2024,-45.90,abc,IFOOD *PEDIDO\n"
	preview, err := svc.Preview(context.Background(), "nu_extrato.csv", "application/octet-stream", []byte(upload))
	require.NoError(t, err)

	assert.Equal(t, "nubank", string(preview.Bank))
	require.Len(t, preview.Transactions, 1)
	assert.Equal(t, "Alimentação", preview.Transactions[0].Category)
}

func TestPreviewRejectsUnknownBank(t *testing.T) {
	svc := newTestService(newFakeLedger())

	_, err := svc.Preview(context.Background(), "extrato.csv", "text/csv", []byte("Data,Valor\n01/01/2024,10\n"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPreviewRejectsUnknownContentType(t *testing.T) {
	svc := newTestService(newFakeLedger())

	_, err := svc.Preview(context.Background(), "extrato.zip", "application/zip", []byte("whatever"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPreviewRejectsNubankPDF(t *testing.T) {
	svc := newTestService(newFakeLedger())

	_, err := svc.Preview(context.Background(), "nu_extrato.pdf", "application/pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCommitFillsDerivedFields(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	batch := []parser.ExtractedTransaction{{
		ID:          "tx-1",
		Date:        "2024-03-05",
		Description: "Pix enviado - ANA LIMA",
		Amount:      150.00,
		Direction:   ledger.DirectionOut,
		Bank:        "inter",
		SourceFile:  "extrato.csv",
	}}

	result, err := svc.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	stored := repo.stored["tx-1"]
	assert.Equal(t, "Outros", stored.Category)
	assert.Equal(t, ledger.MethodPix, stored.Method)
	assert.Equal(t, "Ana", stored.Responsible)
	assert.Equal(t, "importado", stored.Origin)
	assert.Equal(t, "inter - extrato.csv", stored.Note)
}

func TestCommitSkipsDuplicates(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	batch := []parser.ExtractedTransaction{
		{ID: "tx-1", Date: "2024-03-05", Description: "A", Amount: 10, Direction: ledger.DirectionOut},
		{ID: "tx-2", Date: "2024-03-05", Description: "B", Amount: 20, Direction: ledger.DirectionOut, IsDuplicate: true, ExistingID: "old"},
	}

	result, err := svc.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Duplicates)
	assert.Len(t, repo.order, 1)
}

func TestCommitExpandsOpenInstallmentPlan(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	total := 3
	batch := []parser.ExtractedTransaction{{
		ID:           "tx-1",
		Date:         "2024-01-31",
		Description:  "LOJA MOVEIS em 3x",
		Amount:       300.00,
		Direction:    ledger.DirectionOut,
		Bank:         "nubank",
		SourceFile:   "nu_extrato.csv",
		Installments: &total,
	}}

	result, err := svc.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 2, result.InstallmentsCreated)
	require.Len(t, repo.order, 3)

	second := repo.stored[repo.order[1]]
	assert.Equal(t, 100.00, second.Amount)
	assert.Equal(t, ledger.MethodCredit, second.Method)
	assert.Equal(t, "LOJA MOVEIS (parcela 2 de 3)", second.Description)
	// Jan 31 plus one month lands in early March, Go's AddDate semantics.
	assert.Equal(t, "2024-03-02", second.Date)

	third := repo.stored[repo.order[2]]
	assert.Equal(t, "2024-03-31", third.Date)
	assert.Equal(t, "LOJA MOVEIS (parcela 3 de 3)", third.Description)
}

func TestCommitFirstInstallmentExpands(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	index, total := 1, 3
	batch := []parser.ExtractedTransaction{{
		ID:           "tx-1",
		Date:         "2024-03-10",
		Description:  "NETFLIX.COM parcela 1 de 3",
		Amount:       120.00,
		Direction:    ledger.DirectionOut,
		Installment:  &index,
		Installments: &total,
	}}

	result, err := svc.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, result.InstallmentsCreated)

	second := repo.stored[repo.order[1]]
	assert.Equal(t, 40.00, second.Amount)
	assert.Equal(t, "2024-04-10", second.Date)
	assert.Equal(t, "NETFLIX.COM (parcela 2 de 3)", second.Description)
}

func TestCommitMidPlanInstallmentNotExpanded(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	index, total := 2, 6
	batch := []parser.ExtractedTransaction{{
		ID:           "tx-1",
		Date:         "2024-03-10",
		Description:  "NETFLIX.COM parcela 2 de 6",
		Amount:       40.00,
		Direction:    ledger.DirectionOut,
		Installment:  &index,
		Installments: &total,
	}}

	result, err := svc.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Zero(t, result.InstallmentsCreated)
	assert.Len(t, repo.order, 1)
}

func TestCommitReplayIsIdempotent(t *testing.T) {
	repo := newFakeLedger()
	svc := newTestService(repo)

	total := 3
	batch := []parser.ExtractedTransaction{{
		ID:           "tx-1",
		Date:         "2024-03-10",
		Description:  "LOJA MOVEIS em 3x",
		Amount:       300.00,
		Direction:    ledger.DirectionOut,
		Installments: &total,
	}}

	first, err := svc.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Added)
	assert.Equal(t, 2, first.InstallmentsCreated)

	replay, err := svc.Commit(context.Background(), batch)
	require.NoError(t, err)
	assert.Zero(t, replay.Added)
	assert.Zero(t, replay.InstallmentsCreated)
	assert.Len(t, repo.order, 3)
}

func TestDeriveMethod(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"Pix enviado - FULANO", ledger.MethodPix},
		{"Pagamento de boleto", ledger.MethodBoleto},
		{"LOJA parcela 2 de 5", ledger.MethodCredit},
		{"Compra no débito - MERCADO", ledger.MethodDebit},
		{"TED RECEBIDA", ledger.MethodPix},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveMethod(tt.description))
		})
	}
}

func TestInstallmentIDDeterministic(t *testing.T) {
	assert.Equal(t, installmentID("tx-1", 2), installmentID("tx-1", 2))
	assert.NotEqual(t, installmentID("tx-1", 2), installmentID("tx-1", 3))
	assert.NotEqual(t, installmentID("tx-1", 2), installmentID("tx-2", 2))
}

func TestCommitEmptyBatch(t *testing.T) {
	svc := newTestService(newFakeLedger())

	result, err := svc.Commit(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Added)
}
