package categorization

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggestion is a ranked category guess for a description. Lower Distance
// is a closer match.
type Suggestion struct {
	Category string `json:"categoria"`
	Keyword  string `json:"palavra_chave"`
	Distance int    `json:"distancia"`
}

// suggestFromKeywords ranks the keyword table against the description's
// tokens and returns at most limit suggestions, closest first. Each
// category appears once, at its best distance.
func suggestFromKeywords(description string, limit int) []Suggestion {
	tokens := strings.Fields(strings.ToLower(description))
	if len(tokens) == 0 || limit <= 0 {
		return nil
	}

	best := make(map[string]Suggestion)
	for _, entry := range keywordTable {
		keyword := strings.TrimSpace(entry.Keyword)
		for _, token := range tokens {
			distance := fuzzy.RankMatchNormalizedFold(keyword, token)
			if distance < 0 {
				continue
			}
			current, seen := best[entry.Category]
			if !seen || distance < current.Distance {
				best[entry.Category] = Suggestion{
					Category: entry.Category,
					Keyword:  entry.Keyword,
					Distance: distance,
				}
			}
		}
	}

	suggestions := make([]Suggestion, 0, len(best))
	for _, s := range best {
		suggestions = append(suggestions, s)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Distance != suggestions[j].Distance {
			return suggestions[i].Distance < suggestions[j].Distance
		}
		return suggestions[i].Category < suggestions[j].Category
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
