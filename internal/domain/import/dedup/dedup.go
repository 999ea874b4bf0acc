// Package dedup flags extracted transactions that already exist in the
// ledger, so an import can be replayed without double-counting.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/financeia/financeia/internal/domain/import/parser"
	"github.com/financeia/financeia/internal/domain/ledger"
	"github.com/financeia/financeia/pkg/money"
)

// internalNames mark transfers between the household's own accounts. A pix
// mentioning one of these in the opposite direction of a stored transaction
// is the other leg of the same transfer, not a new movement.
var internalNames = []string{
	"ana jullya",
	"ana lima",
	"davi miranda",
	"davi stark",
}

const similarityThreshold = 0.8

// Finder is the slice of the ledger the detector needs.
type Finder interface {
	FindByDatesAndAmounts(ctx context.Context, dates []string, amounts []float64) ([]ledger.Transaction, error)
}

type Detector struct {
	finder Finder
	logger *slog.Logger
}

func NewDetector(finder Finder, logger *slog.Logger) *Detector {
	return &Detector{finder: finder, logger: logger}
}

// Mark annotates each transaction in the batch that duplicates a stored one.
// Candidates are prefetched in a single query over the batch's dates and
// amounts; each transaction is then checked against them in storage order
// and takes the first match.
func (d *Detector) Mark(ctx context.Context, batch []parser.ExtractedTransaction) ([]parser.ExtractedTransaction, error) {
	if len(batch) == 0 {
		return batch, nil
	}

	dates := make([]string, 0, len(batch))
	amounts := make([]float64, 0, len(batch))
	seenDates := make(map[string]struct{}, len(batch))
	seenAmounts := make(map[float64]struct{}, len(batch))
	for _, tx := range batch {
		if _, ok := seenDates[tx.Date]; !ok {
			seenDates[tx.Date] = struct{}{}
			dates = append(dates, tx.Date)
		}
		if _, ok := seenAmounts[tx.Amount]; !ok {
			seenAmounts[tx.Amount] = struct{}{}
			amounts = append(amounts, tx.Amount)
		}
	}

	candidates, err := d.finder.FindByDatesAndAmounts(ctx, dates, amounts)
	if err != nil {
		return nil, fmt.Errorf("load duplicate candidates: %w", err)
	}

	flagged := 0
	for i := range batch {
		if existing, ok := d.match(batch[i], candidates); ok {
			batch[i].IsDuplicate = true
			batch[i].ExistingID = existing.ID
			flagged++
		}
	}
	if flagged > 0 {
		d.logger.Debug("duplicates flagged", slog.Int("count", flagged), slog.Int("batch", len(batch)))
	}
	return batch, nil
}

func (d *Detector) match(tx parser.ExtractedTransaction, candidates []ledger.Transaction) (ledger.Transaction, bool) {
	for _, candidate := range candidates {
		if candidate.Date != tx.Date {
			continue
		}
		if !money.Equalish(candidate.Amount, tx.Amount) {
			continue
		}
		if Similarity(tx.Description, candidate.Description) >= similarityThreshold {
			return candidate, true
		}
	}
	return d.matchInternalTransfer(tx, candidates)
}

// matchInternalTransfer finds the stored opposite leg of a pix between
// household accounts: opposite direction, complementary phrase, a known
// name on both sides, same amount. Dates may differ by a day or two when
// the banks settle, so only the prefilter constrains them.
func (d *Detector) matchInternalTransfer(tx parser.ExtractedTransaction, candidates []ledger.Transaction) (ledger.Transaction, bool) {
	desc := strings.ToLower(tx.Description)
	if !hasInternalName(desc) {
		return ledger.Transaction{}, false
	}

	var opposite string
	switch {
	case strings.Contains(desc, "pix enviado"):
		opposite = "pix recebido"
	case strings.Contains(desc, "pix recebido"):
		opposite = "pix enviado"
	default:
		return ledger.Transaction{}, false
	}

	for _, candidate := range candidates {
		if candidate.Direction != tx.Direction.Opposite() {
			continue
		}
		if !money.Equalish(candidate.Amount, tx.Amount) {
			continue
		}
		candidateDesc := strings.ToLower(candidate.Description)
		if strings.Contains(candidateDesc, opposite) && hasInternalName(candidateDesc) {
			return candidate, true
		}
	}
	return ledger.Transaction{}, false
}

func hasInternalName(lowered string) bool {
	for _, name := range internalNames {
		if strings.Contains(lowered, name) {
			return true
		}
	}
	return false
}

// Similarity is a normalized Levenshtein ratio over the lowercased,
// whitespace-trimmed descriptions. 1 means identical, 0 no overlap.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshteinDistance(ra, rb)
	return float64(maxLen-dist) / float64(maxLen)
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
