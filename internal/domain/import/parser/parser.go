// Package parser turns raw statement documents into extracted transactions.
// One parser per bank/format; all of them are best-effort: a malformed line
// is dropped and parsing continues.
package parser

import (
	"github.com/google/uuid"

	"github.com/financeia/financeia/internal/domain/import/normalizer"
	"github.com/financeia/financeia/internal/domain/import/sniffer"
	"github.com/financeia/financeia/internal/domain/ledger"
)

// ExtractedTransaction is a transaction parsed from an uploaded statement,
// not yet committed to storage. Amount is a non-negative magnitude; the
// sign lives in Direction.
type ExtractedTransaction struct {
	ID           string           `json:"id"`
	Date         string           `json:"data"` // ISO YYYY-MM-DD
	Description  string           `json:"descricao"`
	Amount       float64          `json:"valor"`
	Direction    ledger.Direction `json:"tipo"`
	Bank         sniffer.Bank     `json:"banco_origem"`
	SourceFile   string           `json:"arquivo_nome"`
	Category     string           `json:"categoria,omitempty"`
	IsDuplicate  bool             `json:"is_duplicada"`
	ExistingID   string           `json:"transacao_existente_id,omitempty"`
	Installment  *int             `json:"parcela_atual,omitempty"`
	Installments *int             `json:"parcelas_total,omitempty"`
}

// Result is the outcome of parsing one document.
type Result struct {
	Transactions []ExtractedTransaction
	Skipped      int // malformed lines dropped
}

// newExtracted builds a transaction from normalized pieces. The signed value
// decides the direction; the stored amount is its magnitude. Installment
// metadata is pulled from the final description.
func newExtracted(date, description string, value float64, bank sniffer.Bank, sourceFile string) ExtractedTransaction {
	direction := ledger.DirectionOut
	if value > 0 {
		direction = ledger.DirectionIn
	}
	if value < 0 {
		value = -value
	}

	plan := normalizer.ExtractInstallment(description)

	return ExtractedTransaction{
		ID:           uuid.NewString(),
		Date:         date,
		Description:  description,
		Amount:       value,
		Direction:    direction,
		Bank:         bank,
		SourceFile:   sourceFile,
		Installment:  plan.Index,
		Installments: plan.Total,
	}
}
