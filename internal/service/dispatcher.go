package service

import (
	"context"
	"fmt"

	"jobchat/internal/model"
	"jobchat/internal/schema"
)

// Searcher executes a compiled predicate against one entity collection and
// returns a page of results.
type Searcher interface {
	Search(ctx context.Context, entityKind string, pred model.Predicate, page model.Page) (*model.PagedResult, error)
}

// Dispatcher maps a classified intent onto its entity collection and runs the
// compiled predicate through the persistence collaborator. It holds no
// mutable state and is safe for concurrent use.
type Dispatcher struct {
	searcher        Searcher
	defaultPageSize int
	maxPageSize     int
}

// NewDispatcher creates a dispatcher over searcher.
func NewDispatcher(searcher Searcher, defaultPageSize, maxPageSize int) *Dispatcher {
	return &Dispatcher{
		searcher:        searcher,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Execute runs pred against the collection backing intent. On persistence
// failure it returns ErrSearchExecutionFailed and no partial result.
func (d *Dispatcher) Execute(ctx context.Context, intent model.Intent, pred model.Predicate, page model.Page) (*model.PagedResult, error) {
	kind, err := schema.EntityKindFor(intent)
	if err != nil {
		return nil, err
	}

	result, err := d.searcher.Search(ctx, kind, pred, d.clampPage(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchExecutionFailed, err)
	}

	return result, nil
}

func (d *Dispatcher) clampPage(page model.Page) model.Page {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = d.defaultPageSize
	}
	if d.maxPageSize > 0 && page.Size > d.maxPageSize {
		page.Size = d.maxPageSize
	}
	return page
}
