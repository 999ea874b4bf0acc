// Package categorization resolves transaction descriptions to categories.
// User-taught rules are consulted first, oldest rule winning; the built-in
// keyword table is the fallback.
package categorization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownCategory rejects rules naming a category outside the vocabulary.
var ErrUnknownCategory = errors.New("unknown category")

// Backfiller retroactively applies a taught rule to stored transactions.
type Backfiller interface {
	UpdateCategoryByPattern(ctx context.Context, pattern, category string) (int64, error)
}

type Service struct {
	rules      RulesRepository
	backfiller Backfiller
	logger     *slog.Logger
}

func NewService(rules RulesRepository, backfiller Backfiller, logger *slog.Logger) *Service {
	return &Service{rules: rules, backfiller: backfiller, logger: logger}
}

// Classifier resolves descriptions against a snapshot of the taught rules,
// so a whole batch pays for one rules query.
type Classifier struct {
	rules []Rule
}

// NewClassifier snapshots the current rules.
func (s *Service) NewClassifier(ctx context.Context) (*Classifier, error) {
	rules, err := s.rules.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return &Classifier{rules: rules}, nil
}

// matchRule returns the first taught rule claiming the description.
func (c *Classifier) matchRule(description string) (*Rule, bool) {
	lowered := strings.ToLower(description)
	for i := range c.rules {
		rule := &c.rules[i]
		pattern := strings.ToLower(rule.Pattern)
		switch rule.MatchKind {
		case MatchSubstring:
			if strings.Contains(lowered, pattern) {
				return rule, true
			}
		case MatchExact:
			if lowered == pattern {
				return rule, true
			}
		case MatchRegex:
			// Stored but not evaluated.
		}
	}
	return nil, false
}

// Categorize returns the category for a description, or "" when neither a
// rule nor a keyword claims it.
func (c *Classifier) Categorize(description string) string {
	if rule, ok := c.matchRule(description); ok {
		return rule.Category
	}
	return CategorizeStatic(description)
}

// Categorize is the one-off form of Classifier.Categorize.
func (s *Service) Categorize(ctx context.Context, description string) (string, error) {
	classifier, err := s.NewClassifier(ctx)
	if err != nil {
		return "", err
	}
	return classifier.Categorize(description), nil
}

// LearnRule persists a taught rule and backfills its category onto stored
// transactions whose description contains the pattern. Returns the rule and
// the number of rows updated.
func (s *Service) LearnRule(ctx context.Context, pattern, category, matchKind string) (*Rule, int64, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, 0, errors.New("empty pattern")
	}
	if !validCategory(category) {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if matchKind == "" {
		matchKind = MatchSubstring
	}
	if matchKind != MatchSubstring && matchKind != MatchExact && matchKind != MatchRegex {
		return nil, 0, fmt.Errorf("invalid match kind %q", matchKind)
	}

	rule := &Rule{Pattern: pattern, Category: category, MatchKind: matchKind}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, 0, err
	}

	// Only substring rules translate directly to an ILIKE backfill.
	var updated int64
	if matchKind == MatchSubstring {
		var err error
		updated, err = s.backfiller.UpdateCategoryByPattern(ctx, pattern, category)
		if err != nil {
			return nil, 0, fmt.Errorf("backfill rule %s: %w", rule.ID, err)
		}
	}

	s.logger.Info("rule learned",
		slog.String("pattern", pattern),
		slog.String("category", category),
		slog.Int64("backfilled", updated),
	)
	return rule, updated, nil
}

// Suggest proposes likely categories for a description. A matching taught
// rule ranks first, ahead of the fuzzy keyword hits.
func (s *Service) Suggest(ctx context.Context, description string, limit int) ([]Suggestion, error) {
	if limit <= 0 || strings.TrimSpace(description) == "" {
		return nil, nil
	}
	classifier, err := s.NewClassifier(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := suggestFromKeywords(description, limit)
	rule, ok := classifier.matchRule(description)
	if !ok {
		return suggestions, nil
	}

	ranked := make([]Suggestion, 0, len(suggestions)+1)
	ranked = append(ranked, Suggestion{Category: rule.Category, Keyword: rule.Pattern, Distance: 0})
	for _, sug := range suggestions {
		if sug.Category != rule.Category {
			ranked = append(ranked, sug)
		}
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func validCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
