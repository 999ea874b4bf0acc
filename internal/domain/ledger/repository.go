package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the storage surface the import pipeline depends on.
type Repository interface {
	// FindByDatesAndAmounts returns candidates whose date is in dates AND
	// whose amount is in amounts. This is a superset prefilter; callers apply
	// the precise matching.
	FindByDatesAndAmounts(ctx context.Context, dates []string, amounts []float64) ([]Transaction, error)
	Insert(ctx context.Context, tx *Transaction) error
	Exists(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*Transaction, error)
	// UpdateCategoryByPattern sets the category on every transaction whose
	// description contains pattern, case-insensitively. Returns rows updated.
	UpdateCategoryByPattern(ctx context.Context, pattern, category string) (int64, error)
	// List pages through stored transactions in insertion order.
	List(ctx context.Context, limit, offset int) ([]Transaction, error)
}

// Querier is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository is the pgx-backed Repository implementation.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository creates a repository over the given pool.
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const transactionColumns = `id, data, descricao, categoria, tipo, valor, forma, responsavel, origem, observacao, criado_em`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var responsible, origin, note *string
	if err := row.Scan(
		&t.ID, &t.Date, &t.Description, &t.Category, &t.Direction,
		&t.Amount, &t.Method, &responsible, &origin, &note, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	if responsible != nil {
		t.Responsible = *responsible
	}
	if origin != nil {
		t.Origin = *origin
	}
	if note != nil {
		t.Note = *note
	}
	return &t, nil
}

// FindByDatesAndAmounts implements the dedup prefilter query.
func (r *PostgresRepository) FindByDatesAndAmounts(ctx context.Context, dates []string, amounts []float64) ([]Transaction, error) {
	if len(dates) == 0 || len(amounts) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM lancamentos
		WHERE data = ANY($1) AND valor = ANY($2)
		ORDER BY criado_em ASC
	`

	rows, err := r.db.Query(ctx, query, dates, amounts)
	if err != nil {
		return nil, fmt.Errorf("query duplicate candidates: %w", err)
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// Insert persists a new transaction.
func (r *PostgresRepository) Insert(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO lancamentos (id, data, descricao, categoria, tipo, valor, forma, responsavel, origem, observacao)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''))
	`

	_, err := r.db.Exec(ctx, query,
		tx.ID, tx.Date, tx.Description, tx.Category, tx.Direction,
		tx.Amount, tx.Method, tx.Responsible, tx.Origin, tx.Note,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Exists reports whether a transaction with the given id is stored.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lancamentos WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transaction exists: %w", err)
	}
	return exists, nil
}

// GetByID fetches a single transaction, ErrNotFound when absent.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM lancamentos WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// likeEscaper neutralizes LIKE metacharacters so a taught pattern matches
// literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// UpdateCategoryByPattern backfills a taught category onto matching rows.
func (r *PostgresRepository) UpdateCategoryByPattern(ctx context.Context, pattern, category string) (int64, error) {
	query := `UPDATE lancamentos SET categoria = $2 WHERE descricao ILIKE '%' || $1 || '%'`

	tag, err := r.db.Exec(ctx, query, likeEscaper.Replace(pattern), category)
	if err != nil {
		return 0, fmt.Errorf("backfill category: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List pages through stored transactions, oldest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM lancamentos ORDER BY criado_em ASC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}
