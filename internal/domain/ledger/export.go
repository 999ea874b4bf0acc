package ledger

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// exportRow is the CSV shape of a transaction, with the stored column names
// as headers so the export round-trips with spreadsheet tooling.
type exportRow struct {
	ID          string  `csv:"id"`
	Date        string  `csv:"data"`
	Description string  `csv:"descricao"`
	Category    string  `csv:"categoria"`
	Direction   string  `csv:"tipo"`
	Amount      float64 `csv:"valor"`
	Method      string  `csv:"forma"`
	Responsible string  `csv:"responsavel"`
	Origin      string  `csv:"origem"`
	Note        string  `csv:"observacao"`
}

const exportPageSize = 500

// ExportCSV streams the whole ledger as CSV, oldest first.
func ExportCSV(ctx context.Context, repo Repository, w io.Writer) error {
	var rows []exportRow
	for offset := 0; ; offset += exportPageSize {
		page, err := repo.List(ctx, exportPageSize, offset)
		if err != nil {
			return fmt.Errorf("list transactions for export: %w", err)
		}
		for _, tx := range page {
			rows = append(rows, exportRow{
				ID:          tx.ID,
				Date:        tx.Date,
				Description: tx.Description,
				Category:    tx.Category,
				Direction:   string(tx.Direction),
				Amount:      tx.Amount,
				Method:      tx.Method,
				Responsible: tx.Responsible,
				Origin:      tx.Origin,
				Note:        tx.Note,
			})
		}
		if len(page) < exportPageSize {
			break
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write csv export: %w", err)
	}
	return nil
}
