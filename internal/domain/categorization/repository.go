package categorization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/financeia/financeia/internal/domain/ledger"
)

// Match kinds accepted on persisted rules. Regex rules are stored for
// forward compatibility but not evaluated.
const (
	MatchSubstring = "substring"
	MatchExact     = "exato"
	MatchRegex     = "regex"
)

// Rule is a user-taught categorization rule. Rules are applied oldest
// first, before the built-in keyword table.
type Rule struct {
	ID        string
	Pattern   string
	Category  string
	MatchKind string
	CreatedAt time.Time
}

// RulesRepository stores taught rules.
type RulesRepository interface {
	Create(ctx context.Context, rule *Rule) error
	// ListAll returns every rule, oldest first.
	ListAll(ctx context.Context) ([]Rule, error)
}

// PostgresRulesRepository is the pgx-backed RulesRepository.
type PostgresRulesRepository struct {
	db ledger.Querier
}

func NewPostgresRulesRepository(db ledger.Querier) *PostgresRulesRepository {
	return &PostgresRulesRepository{db: db}
}

// Create persists a rule, assigning its id when empty.
func (r *PostgresRulesRepository) Create(ctx context.Context, rule *Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	query := `
		INSERT INTO regras_categorizacao (id, descricao_padrao, categoria, tipo_match)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, rule.ID, rule.Pattern, rule.Category, rule.MatchKind)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// ListAll loads rules in creation order so the earliest taught rule wins.
func (r *PostgresRulesRepository) ListAll(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT id, descricao_padrao, categoria, tipo_match, criado_em
		FROM regras_categorizacao
		ORDER BY criado_em ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.Pattern, &rule.Category, &rule.MatchKind, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
