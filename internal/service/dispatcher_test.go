package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"jobchat/internal/model"
	"jobchat/internal/schema"
)

// fakeSearcher records what the dispatcher sends to the persistence collaborator.
type fakeSearcher struct {
	result *model.PagedResult
	err    error

	calls   int
	gotKind string
	gotPred model.Predicate
	gotPage model.Page
}

func (f *fakeSearcher) Search(ctx context.Context, entityKind string, pred model.Predicate, page model.Page) (*model.PagedResult, error) {
	f.calls++
	f.gotKind = entityKind
	f.gotPred = pred
	f.gotPage = page
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestExecute_MapsIntentToEntityKind(t *testing.T) {
	tests := []struct {
		intent model.Intent
		kind   string
	}{
		{model.IntentJobSearch, "jobs"},
		{model.IntentUserSearch, "users"},
		{model.IntentSubscriptionSearch, "subscription_plans"},
		{model.IntentCompanyInfo, "companies"},
		{model.IntentEmployerReviewSearch, "employer_reviews"},
		{model.IntentApplicationSearch, "applications"},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			searcher := &fakeSearcher{result: &model.PagedResult{}}
			d := NewDispatcher(searcher, 20, 100)

			if _, err := d.Execute(context.Background(), tt.intent, model.Predicate{}, model.Page{Number: 1, Size: 10}); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if searcher.gotKind != tt.kind {
				t.Errorf("entity kind = %q, want %q", searcher.gotKind, tt.kind)
			}
		})
	}
}

func TestExecute_PredicatePassedThroughUnchanged(t *testing.T) {
	pred := model.Predicate{Conditions: []model.Condition{
		{Path: "title", Kind: model.MatchSubstring, Value: "engineer"},
		{Path: "salary", Kind: model.MatchRangeMin, Value: 1000.0},
	}}

	searcher := &fakeSearcher{result: &model.PagedResult{}}
	d := NewDispatcher(searcher, 20, 100)

	if _, err := d.Execute(context.Background(), model.IntentJobSearch, pred, model.Page{Number: 2, Size: 5}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !reflect.DeepEqual(searcher.gotPred, pred) {
		t.Errorf("predicate was altered:\ngot:  %+v\nwant: %+v", searcher.gotPred, pred)
	}
	if searcher.gotPage != (model.Page{Number: 2, Size: 5}) {
		t.Errorf("page = %+v, want {2 5}", searcher.gotPage)
	}
}

func TestExecute_PageClamping(t *testing.T) {
	tests := []struct {
		name string
		in   model.Page
		want model.Page
	}{
		{name: "zero page", in: model.Page{}, want: model.Page{Number: 1, Size: 20}},
		{name: "negative number", in: model.Page{Number: -3, Size: 10}, want: model.Page{Number: 1, Size: 10}},
		{name: "oversized", in: model.Page{Number: 1, Size: 1000}, want: model.Page{Number: 1, Size: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{result: &model.PagedResult{}}
			d := NewDispatcher(searcher, 20, 100)

			if _, err := d.Execute(context.Background(), model.IntentJobSearch, model.Predicate{}, tt.in); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if searcher.gotPage != tt.want {
				t.Errorf("page = %+v, want %+v", searcher.gotPage, tt.want)
			}
		})
	}
}

func TestExecute_PersistenceFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("connection reset")}
	d := NewDispatcher(searcher, 20, 100)

	result, err := d.Execute(context.Background(), model.IntentJobSearch, model.Predicate{}, model.Page{Number: 1, Size: 10})
	if !errors.Is(err, ErrSearchExecutionFailed) {
		t.Fatalf("err = %v, want ErrSearchExecutionFailed", err)
	}
	if result != nil {
		t.Errorf("got partial result %+v, want nil", result)
	}
}

func TestExecute_UnsearchableIntent(t *testing.T) {
	searcher := &fakeSearcher{result: &model.PagedResult{}}
	d := NewDispatcher(searcher, 20, 100)

	for _, intent := range []model.Intent{model.IntentGeneralChat, model.IntentUnclear} {
		_, err := d.Execute(context.Background(), intent, model.Predicate{}, model.Page{Number: 1, Size: 10})
		if !errors.Is(err, schema.ErrUnknownIntent) {
			t.Errorf("Execute(%s) = %v, want ErrUnknownIntent", intent, err)
		}
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times for unsearchable intents, want 0", searcher.calls)
	}
}
