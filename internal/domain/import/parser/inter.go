package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/financeia/financeia/internal/domain/import/normalizer"
	"github.com/financeia/financeia/internal/domain/import/sniffer"
)

// ParseInterCSV parses a Banco Inter account-statement CSV. The export
// carries metadata lines before the data header:
//
//	Data Lançamento;Histórico;Descrição;Valor;Saldo
//
// Everything up to the line starting with "Data" is skipped; each data row
// has exactly five semicolon-separated fields (the balance is unused).
func ParseInterCSV(content, sourceFile string) *Result {
	result := &Result{}

	started := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if !started {
			if strings.HasPrefix(line, "Data") {
				started = true
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) != 5 {
			result.Skipped++
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		date, err := normalizer.NormalizeDate(fields[0])
		if err != nil {
			result.Skipped++
			continue
		}
		value, err := normalizer.NormalizeAmount(fields[3])
		if err != nil {
			result.Skipped++
			continue
		}

		// fields[1] is the movement type ("PIX", "Compra no débito", ...),
		// fields[2] the counterparty text. Keep both.
		description := strings.Trim(fields[1]+" - "+fields[2], " -")

		result.Transactions = append(result.Transactions,
			newExtracted(date, description, value, sniffer.BankInter, sourceFile))
	}

	return result
}

var (
	interDateRe   = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	interAmountRe = regexp.MustCompile(`-?R?\$?\s?[\d.,]+`)
)

// ParseInterPDF extracts transactions from a Banco Inter PDF statement.
// The pages' plain text is concatenated and scanned line by line; a line
// contributes a transaction when it carries a DD/MM/YYYY token and at least
// one currency-like token (the last one is the amount). Layout drift in the
// source document degrades extraction quality; that is an accepted
// limitation of text-based PDF scraping.
func ParseInterPDF(data []byte, sourceFile string) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	result := &Result{}
	for _, line := range strings.Split(text.String(), "\n") {
		if tx, ok := parseInterPDFLine(line, sourceFile); ok {
			result.Transactions = append(result.Transactions, tx)
		}
	}
	return result, nil
}

// parseInterPDFLine extracts one transaction from a line of PDF text.
// Returns false when the line carries no date or no parseable amount.
func parseInterPDFLine(line, sourceFile string) (ExtractedTransaction, bool) {
	dateToken := interDateRe.FindString(line)
	if dateToken == "" {
		return ExtractedTransaction{}, false
	}
	date, err := normalizer.NormalizeDate(dateToken)
	if err != nil {
		return ExtractedTransaction{}, false
	}

	amountTokens := interAmountRe.FindAllString(line, -1)
	if len(amountTokens) == 0 {
		return ExtractedTransaction{}, false
	}
	amountToken := amountTokens[len(amountTokens)-1]
	value, err := normalizer.NormalizeAmount(amountToken)
	if err != nil {
		return ExtractedTransaction{}, false
	}

	description := strings.ReplaceAll(line, dateToken, "")
	description = strings.ReplaceAll(description, amountToken, "")
	description = strings.Trim(description, " -")

	return newExtracted(date, description, value, sniffer.BankInter, sourceFile), true
}
