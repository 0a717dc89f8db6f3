package repository

import (
	"context"
	"strings"
	"sync"

	"jobchat/internal/model"
)

// MemorySearcher evaluates compiled predicates over in-memory document sets.
// It backs SEARCH_BACKEND=memory for local development and is the search
// collaborator used in tests. Documents are nested maps; dotted condition
// paths traverse the nesting, so join paths resolve through embedded
// documents (e.g. a job carrying its employer and the employer's profile).
type MemorySearcher struct {
	mu   sync.RWMutex
	docs map[string][]map[string]any
}

// NewMemorySearcher creates an empty in-memory searcher.
func NewMemorySearcher() *MemorySearcher {
	return &MemorySearcher{docs: make(map[string][]map[string]any)}
}

// Load appends documents to an entity collection.
func (m *MemorySearcher) Load(entityKind string, docs ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[entityKind] = append(m.docs[entityKind], docs...)
}

// Search implements the Searcher contract: conjunctive filtering followed by
// pagination. An unknown collection yields an empty result, not an error.
func (m *MemorySearcher) Search(ctx context.Context, entityKind string, pred model.Predicate, page model.Page) (*model.PagedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []any
	for _, doc := range m.docs[entityKind] {
		if matchesAll(doc, pred.Conditions) {
			matched = append(matched, doc)
		}
	}

	total := len(matched)
	start := (page.Number - 1) * page.Size
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}

	items := make([]any, end-start)
	copy(items, matched[start:end])

	return &model.PagedResult{
		Items:      items,
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: total,
	}, nil
}

func matchesAll(doc map[string]any, conditions []model.Condition) bool {
	for _, cond := range conditions {
		if !matches(doc, cond) {
			return false
		}
	}
	return true
}

func matches(doc map[string]any, cond model.Condition) bool {
	stored, found := resolvePath(doc, cond.Path)

	switch cond.Kind {
	case model.MatchPresence:
		want, ok := cond.Value.(bool)
		if !ok {
			return false
		}
		return isEmpty(stored) != want

	case model.MatchExact:
		if !found {
			return false
		}
		if s, ok := stored.(string); ok {
			w, ok := cond.Value.(string)
			return ok && strings.EqualFold(s, w)
		}
		return stored == cond.Value

	case model.MatchSubstring:
		if !found {
			return false
		}
		w, ok := cond.Value.(string)
		if !ok {
			return false
		}
		return containsFold(stored, w)

	case model.MatchRangeMin:
		sv, okS := toFloat(stored)
		cv, okC := toFloat(cond.Value)
		return found && okS && okC && sv >= cv

	case model.MatchRangeMax:
		sv, okS := toFloat(stored)
		cv, okC := toFloat(cond.Value)
		return found && okS && okC && sv <= cv

	case model.MatchBoolEquals:
		sb, okS := stored.(bool)
		cb, okC := cond.Value.(bool)
		return found && okS && okC && sb == cb
	}

	return false
}

// resolvePath walks a dotted path through nested map documents.
func resolvePath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc
	for _, seg := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// containsFold reports whether stored contains needle case-insensitively.
// Array values match when any element contains the needle.
func containsFold(stored any, needle string) bool {
	needle = strings.ToLower(needle)

	switch v := stored.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), needle)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}
