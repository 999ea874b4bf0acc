// Package service orchestrates statement imports: preview parses and
// annotates an upload without persisting anything; commit writes the
// reviewed batch into the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/financeia/financeia/internal/domain/categorization"
	"github.com/financeia/financeia/internal/domain/import/dedup"
	"github.com/financeia/financeia/internal/domain/import/parser"
	"github.com/financeia/financeia/internal/domain/import/sniffer"
	"github.com/financeia/financeia/internal/domain/ledger"
	"github.com/financeia/financeia/internal/domain/responsible"
	"github.com/financeia/financeia/pkg/metrics"
	"github.com/financeia/financeia/pkg/money"
)

// ErrUnsupportedFormat rejects uploads whose content type or bank cannot
// be handled.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// Content types accepted as CSV uploads. Browsers are sloppy about the
// exact type they attach to .csv files.
var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"application/octet-stream": true,
}

const (
	csvSniffLen = 500
	pdfSniffLen = 1024

	originImported = "importado"
)

type Service struct {
	ledger      ledger.Repository
	detector    *dedup.Detector
	categorizer *categorization.Service
	logger      *slog.Logger
}

func New(repo ledger.Repository, detector *dedup.Detector, categorizer *categorization.Service, logger *slog.Logger) *Service {
	return &Service{
		ledger:      repo,
		detector:    detector,
		categorizer: categorizer,
		logger:      logger,
	}
}

// PreviewResult is what the client reviews before committing.
type PreviewResult struct {
	Bank         sniffer.Bank                  `json:"banco"`
	Transactions []parser.ExtractedTransaction `json:"transacoes"`
	Skipped      int                           `json:"linhas_ignoradas"`
	Duplicates   int                           `json:"duplicadas"`
}

// Preview parses an uploaded statement, flags duplicates against the ledger
// and pre-fills categories. Nothing is persisted.
func (s *Service) Preview(ctx context.Context, filename, contentType string, data []byte) (*PreviewResult, error) {
	result, bank, err := s.parse(filename, contentType, data)
	if err != nil {
		return nil, err
	}

	metrics.TransactionsExtracted.WithLabelValues(string(bank)).Add(float64(len(result.Transactions)))
	metrics.RowsSkipped.WithLabelValues(string(bank)).Add(float64(result.Skipped))

	transactions, err := s.detector.Mark(ctx, result.Transactions)
	if err != nil {
		return nil, err
	}

	classifier, err := s.categorizer.NewClassifier(ctx)
	if err != nil {
		return nil, err
	}

	duplicates := 0
	for i := range transactions {
		if transactions[i].IsDuplicate {
			duplicates++
			continue
		}
		if transactions[i].Category == "" {
			transactions[i].Category = classifier.Categorize(transactions[i].Description)
		}
	}
	metrics.DuplicatesDetected.Add(float64(duplicates))

	s.logger.Info("statement previewed",
		slog.String("file", filename),
		slog.String("bank", string(bank)),
		slog.Int("extracted", len(transactions)),
		slog.Int("skipped", result.Skipped),
		slog.Int("duplicates", duplicates),
	)

	return &PreviewResult{
		Bank:         bank,
		Transactions: transactions,
		Skipped:      result.Skipped,
		Duplicates:   duplicates,
	}, nil
}

// parse routes the upload to the right bank parser.
func (s *Service) parse(filename, contentType string, data []byte) (*parser.Result, sniffer.Bank, error) {
	switch {
	case csvContentTypes[contentType]:
		content := string(data)
		bank := sniffer.DetectBank(filename, prefix(content, csvSniffLen))
		switch bank {
		case sniffer.BankInter:
			return parser.ParseInterCSV(content, filename), bank, nil
		case sniffer.BankNubank:
			return parser.ParseNubankCSV(content, filename), bank, nil
		default:
			return nil, bank, fmt.Errorf("%w: %v", ErrUnsupportedFormat, sniffer.ErrUnknownBank)
		}

	case contentType == "application/pdf":
		bank := sniffer.DetectBank(filename, prefix(string(data), pdfSniffLen))
		if bank != sniffer.BankInter {
			// Only Inter ships PDF-only statements.
			return nil, bank, fmt.Errorf("%w: pdf statements are supported for inter only", ErrUnsupportedFormat)
		}
		result, err := parser.ParseInterPDF(data, filename)
		if err != nil {
			return nil, bank, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return result, bank, nil

	default:
		return nil, sniffer.BankUnknown, fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	}
}

func prefix(content string, n int) string {
	if len(content) > n {
		return content[:n]
	}
	return content
}

// CommitResult summarizes what a commit persisted.
type CommitResult struct {
	Added               int `json:"adicionadas"`
	Duplicates          int `json:"duplicadas"`
	InstallmentsCreated int `json:"parcelas_criadas"`
}

// Commit persists a reviewed batch. Duplicates are counted and skipped;
// everything else is stored with derived payment method, responsible party
// and audit fields, and installment plans are expanded into future-dated
// entries. Replaying the same batch is a no-op for rows already stored.
func (s *Service) Commit(ctx context.Context, batch []parser.ExtractedTransaction) (*CommitResult, error) {
	result := &CommitResult{}

	for _, extracted := range batch {
		if extracted.IsDuplicate {
			result.Duplicates++
			continue
		}

		stored, err := s.ledger.Exists(ctx, extracted.ID)
		if err != nil {
			return result, err
		}
		if !stored {
			tx := s.toTransaction(extracted)
			if err := s.ledger.Insert(ctx, &tx); err != nil {
				return result, fmt.Errorf("commit transaction %s: %w", extracted.ID, err)
			}
			result.Added++
			metrics.TransactionsCommitted.Inc()
		}

		created, err := s.expandInstallments(ctx, extracted)
		if err != nil {
			return result, err
		}
		result.InstallmentsCreated += created
	}

	s.logger.Info("statement committed",
		slog.Int("added", result.Added),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("installments", result.InstallmentsCreated),
	)
	return result, nil
}

// toTransaction fills in the fields the extraction doesn't carry.
func (s *Service) toTransaction(extracted parser.ExtractedTransaction) ledger.Transaction {
	category := extracted.Category
	if category == "" {
		category = categorization.DefaultCategory
	}

	return ledger.Transaction{
		ID:          extracted.ID,
		Date:        extracted.Date,
		Description: extracted.Description,
		Category:    category,
		Direction:   extracted.Direction,
		Amount:      extracted.Amount,
		Method:      deriveMethod(extracted.Description),
		Responsible: responsible.Detect(extracted.Description, extracted.Direction),
		Origin:      originImported,
		Note:        fmt.Sprintf("%s - %s", extracted.Bank, extracted.SourceFile),
	}
}

// deriveMethod guesses the payment method from the description. Pix is the
// default: it is how nearly everything moves on these accounts.
func deriveMethod(description string) string {
	lowered := strings.ToLower(description)
	switch {
	case strings.Contains(lowered, "pix"):
		return ledger.MethodPix
	case strings.Contains(lowered, "boleto"):
		return ledger.MethodBoleto
	case strings.Contains(lowered, "parcela"):
		return ledger.MethodCredit
	case strings.Contains(lowered, "débito") || strings.Contains(lowered, "debito"):
		return ledger.MethodDebit
	default:
		return ledger.MethodPix
	}
}

// expandInstallments synthesizes the future charges of an installment plan.
// Only plans observed at their first charge are expanded ("em 10x" or
// "parcela 1 de 10"); a mid-plan line is just that month's charge. Synthetic
// IDs are deterministic so a replayed commit finds them already stored.
func (s *Service) expandInstallments(ctx context.Context, extracted parser.ExtractedTransaction) (int, error) {
	if extracted.Installments == nil || *extracted.Installments <= 1 {
		return 0, nil
	}
	if extracted.Installment != nil && *extracted.Installment != 1 {
		return 0, nil
	}

	total := *extracted.Installments
	firstDate, err := time.Parse("2006-01-02", extracted.Date)
	if err != nil {
		return 0, fmt.Errorf("installment base date %q: %w", extracted.Date, err)
	}

	// The statement line carries the plan total; each charge is an even share.
	amount := money.SplitEven(extracted.Amount, total)

	created := 0
	for i := 2; i <= total; i++ {
		id := installmentID(extracted.ID, i)

		stored, err := s.ledger.Exists(ctx, id)
		if err != nil {
			return created, err
		}
		if stored {
			continue
		}

		tx := s.toTransaction(extracted)
		tx.ID = id
		tx.Amount = amount
		tx.Date = firstDate.AddDate(0, i-1, 0).Format("2006-01-02")
		tx.Method = ledger.MethodCredit
		tx.Description = fmt.Sprintf("%s (parcela %d de %d)", baseDescription(extracted.Description), i, total)

		if err := s.ledger.Insert(ctx, &tx); err != nil {
			return created, fmt.Errorf("commit installment %s: %w", id, err)
		}
		created++
		metrics.InstallmentsCreated.Inc()
	}
	return created, nil
}

// installmentID derives a stable id for the i-th installment of a plan.
func installmentID(originalID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", originalID, index))).String()
}

var installmentSuffixes = []string{"parcela", "em "}

// baseDescription strips an installment annotation off the end of a
// description, so synthesized entries read "LOJA X (parcela 3 de 10)"
// rather than "LOJA X em 10x (parcela 3 de 10)".
func baseDescription(description string) string {
	lowered := strings.ToLower(description)
	for _, marker := range installmentSuffixes {
		if idx := strings.LastIndex(lowered, marker); idx > 0 {
			return strings.TrimRight(description[:idx], " -")
		}
	}
	return description
}
