package parser

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/financeia/financeia/internal/domain/import/normalizer"
	"github.com/financeia/financeia/internal/domain/import/sniffer"
)

// ParseNubankCSV parses a Nubank account-statement CSV with the header
//
//	Data,Valor,Identificador,Descrição
//
// The bank's identifier column is discarded in favour of our own IDs.
// Descriptions may carry commas inside quotes, so the record is read with a
// real CSV reader rather than a split.
func ParseNubankCSV(content, sourceFile string) *Result {
	reader := csv.NewReader(strings.NewReader(content))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	result := &Result{}
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}
		if first {
			// Header row.
			first = false
			continue
		}
		if len(record) < 4 {
			result.Skipped++
			continue
		}

		date, derr := normalizer.NormalizeDate(strings.TrimSpace(record[0]))
		if derr != nil {
			result.Skipped++
			continue
		}
		// Nubank amounts use a plain decimal comma, no thousands separator.
		value, verr := strconv.ParseFloat(strings.Replace(strings.TrimSpace(record[1]), ",", ".", 1), 64)
		if verr != nil {
			result.Skipped++
			continue
		}
		description := strings.TrimSpace(record[3])

		result.Transactions = append(result.Transactions,
			newExtracted(date, description, value, sniffer.BankNubank, sourceFile))
	}

	return result
}
