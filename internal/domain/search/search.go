// Package search maintains a full-text Bleve index over the ledger so a
// user can find transactions by free text ("uber março", "aluguel").
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/financeia/financeia/internal/domain/ledger"
)

// Document is the indexed shape of a ledger transaction.
type Document struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Direction   string  `json:"direction"`
	Amount      float64 `json:"amount"`
	Responsible string  `json:"responsible"`
}

// Result is a search hit with its relevance score.
type Result struct {
	Document Document
	Score    float64
}

// Index wraps a Bleve index over stored transactions.
type Index struct {
	index   bleve.Index
	indexMu sync.RWMutex
}

// NewIndex opens (or creates) the index at path. An empty path gives an
// in-memory index, used by tests.
func NewIndex(path string) (*Index, error) {
	indexMapping := buildIndexMapping()

	var (
		index bleve.Index
		err   error
	)
	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	return &Index{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", textFieldMapping)
	docMapping.AddFieldMappingsAt("responsible", textFieldMapping)
	docMapping.AddFieldMappingsAt("date", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("direction", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("amount", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexTransactions adds or updates a batch of transactions.
func (idx *Index) IndexTransactions(transactions []ledger.Transaction) error {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	batch := idx.index.NewBatch()
	for _, tx := range transactions {
		doc := Document{
			ID:          tx.ID,
			Date:        tx.Date,
			Description: tx.Description,
			Category:    tx.Category,
			Direction:   string(tx.Direction),
			Amount:      tx.Amount,
			Responsible: tx.Responsible,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("index transaction %s: %w", tx.ID, err)
		}
	}
	if err := idx.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// Search runs a fuzzy match query over the index, best hits first.
func (idx *Index) Search(query string, limit int) ([]Result, error) {
	idx.indexMu.RLock()
	defer idx.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	request := bleve.NewSearchRequest(matchQuery)
	request.Size = limit
	request.Fields = []string{"*"}

	searchResults, err := idx.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return convertResults(searchResults), nil
}

func convertResults(searchResults *bleve.SearchResult) []Result {
	results := make([]Result, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		doc := Document{ID: hit.ID}
		if v, ok := hit.Fields["date"].(string); ok {
			doc.Date = v
		}
		if v, ok := hit.Fields["description"].(string); ok {
			doc.Description = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			doc.Category = v
		}
		if v, ok := hit.Fields["direction"].(string); ok {
			doc.Direction = v
		}
		if v, ok := hit.Fields["amount"].(float64); ok {
			doc.Amount = v
		}
		if v, ok := hit.Fields["responsible"].(string); ok {
			doc.Responsible = v
		}
		results = append(results, Result{Document: doc, Score: hit.Score})
	}
	return results
}

// DocumentCount returns how many transactions are indexed.
func (idx *Index) DocumentCount() (uint64, error) {
	idx.indexMu.RLock()
	defer idx.indexMu.RUnlock()
	return idx.index.DocCount()
}

// Close releases the underlying index.
func (idx *Index) Close() error {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	if idx.index != nil {
		return idx.index.Close()
	}
	return nil
}

const reindexPageSize = 500

// Reindexer pages the whole ledger into the index. Runs at startup and on
// the nightly schedule.
type Reindexer struct {
	index  *Index
	ledger ledger.Repository
	logger *slog.Logger
}

func NewReindexer(index *Index, repo ledger.Repository, logger *slog.Logger) *Reindexer {
	return &Reindexer{index: index, ledger: repo, logger: logger}
}

// Reindex walks all stored transactions and (re)indexes them.
func (r *Reindexer) Reindex(ctx context.Context) error {
	total := 0
	for offset := 0; ; offset += reindexPageSize {
		page, err := r.ledger.List(ctx, reindexPageSize, offset)
		if err != nil {
			return fmt.Errorf("list transactions for reindex: %w", err)
		}
		if len(page) == 0 {
			break
		}
		if err := r.index.IndexTransactions(page); err != nil {
			return err
		}
		total += len(page)
		if len(page) < reindexPageSize {
			break
		}
	}
	r.logger.Info("search reindex complete", slog.Int("transactions", total))
	return nil
}
