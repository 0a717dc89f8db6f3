// Package schema declares, per intent, the typed all-optional fields a
// parameter bag may contain, their match semantics, and the join path from
// the intent's root entity to the field's owning entity. The registry is
// pure data, immutable after startup, and safe to share across turns.
package schema

import (
	"errors"
	"fmt"

	"jobchat/internal/model"
)

// ValueType is the JSON scalar type a field accepts.
type ValueType string

const (
	TypeText   ValueType = "text"
	TypeNumber ValueType = "number"
	TypeBool   ValueType = "bool"
)

// FieldSpec declares one optional parameter field for an intent. Path is the
// dotted join path from the intent's root entity to the stored field; a path
// without dots lives on the root entity itself.
type FieldSpec struct {
	Name string
	Type ValueType
	Kind model.MatchKind
	Path string
}

// ErrUnknownIntent reports a registry gap: an intent with no declared schema
// or entity collection.
var ErrUnknownIntent = errors.New("unknown intent")

// searchIntents fixes the enumeration order for Intents().
var searchIntents = []model.Intent{
	model.IntentJobSearch,
	model.IntentUserSearch,
	model.IntentSubscriptionSearch,
	model.IntentCompanyInfo,
	model.IntentEmployerReviewSearch,
	model.IntentApplicationSearch,
}

var entityKinds = map[model.Intent]string{
	model.IntentJobSearch:            "jobs",
	model.IntentUserSearch:           "users",
	model.IntentSubscriptionSearch:   "subscription_plans",
	model.IntentCompanyInfo:          "companies",
	model.IntentEmployerReviewSearch: "employer_reviews",
	model.IntentApplicationSearch:    "applications",
}

// registry lists field specs in declaration order. Order is what makes
// compiled predicates deterministic, so append-only edits please.
var registry = map[model.Intent][]FieldSpec{
	model.IntentJobSearch: {
		{Name: "title", Type: TypeText, Kind: model.MatchSubstring, Path: "title"},
		{Name: "location", Type: TypeText, Kind: model.MatchSubstring, Path: "location"},
		{Name: "level", Type: TypeText, Kind: model.MatchExact, Path: "level"},
		{Name: "work_type", Type: TypeText, Kind: model.MatchExact, Path: "work_type"},
		{Name: "min_salary", Type: TypeNumber, Kind: model.MatchRangeMin, Path: "salary"},
		{Name: "max_salary", Type: TypeNumber, Kind: model.MatchRangeMax, Path: "salary"},
		{Name: "remote", Type: TypeBool, Kind: model.MatchBoolEquals, Path: "remote"},
		{Name: "has_benefits", Type: TypeBool, Kind: model.MatchPresence, Path: "benefits"},
		{Name: "skill", Type: TypeText, Kind: model.MatchSubstring, Path: "skills"},
		{Name: "employer_name", Type: TypeText, Kind: model.MatchSubstring, Path: "employer.profile.company_name"},
	},
	model.IntentUserSearch: {
		{Name: "name", Type: TypeText, Kind: model.MatchSubstring, Path: "full_name"},
		{Name: "role", Type: TypeText, Kind: model.MatchExact, Path: "role"},
		{Name: "location", Type: TypeText, Kind: model.MatchSubstring, Path: "location"},
		{Name: "skill", Type: TypeText, Kind: model.MatchSubstring, Path: "skills"},
		{Name: "available", Type: TypeBool, Kind: model.MatchBoolEquals, Path: "open_to_work"},
	},
	model.IntentSubscriptionSearch: {
		{Name: "name", Type: TypeText, Kind: model.MatchSubstring, Path: "name"},
		{Name: "min_price", Type: TypeNumber, Kind: model.MatchRangeMin, Path: "price"},
		{Name: "max_price", Type: TypeNumber, Kind: model.MatchRangeMax, Path: "price"},
		{Name: "active", Type: TypeBool, Kind: model.MatchBoolEquals, Path: "active"},
	},
	model.IntentCompanyInfo: {
		{Name: "name", Type: TypeText, Kind: model.MatchSubstring, Path: "name"},
		{Name: "industry", Type: TypeText, Kind: model.MatchExact, Path: "industry"},
		{Name: "location", Type: TypeText, Kind: model.MatchSubstring, Path: "location"},
		{Name: "min_size", Type: TypeNumber, Kind: model.MatchRangeMin, Path: "employee_count"},
		{Name: "has_website", Type: TypeBool, Kind: model.MatchPresence, Path: "website"},
	},
	model.IntentEmployerReviewSearch: {
		{Name: "company_name", Type: TypeText, Kind: model.MatchSubstring, Path: "company.name"},
		{Name: "min_rating", Type: TypeNumber, Kind: model.MatchRangeMin, Path: "rating"},
		{Name: "max_rating", Type: TypeNumber, Kind: model.MatchRangeMax, Path: "rating"},
		{Name: "has_comment", Type: TypeBool, Kind: model.MatchPresence, Path: "comment"},
	},
	model.IntentApplicationSearch: {
		{Name: "job_title", Type: TypeText, Kind: model.MatchSubstring, Path: "job.title"},
		{Name: "status", Type: TypeText, Kind: model.MatchExact, Path: "status"},
		{Name: "applicant_name", Type: TypeText, Kind: model.MatchSubstring, Path: "applicant.full_name"},
		{Name: "min_expected_salary", Type: TypeNumber, Kind: model.MatchRangeMin, Path: "expected_salary"},
	},
}

// SchemaFor returns the declared field specs for intent in declaration order.
func SchemaFor(intent model.Intent) ([]FieldSpec, error) {
	specs, ok := registry[intent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntent, intent)
	}
	return specs, nil
}

// EntityKindFor returns the entity collection backing intent.
func EntityKindFor(intent model.Intent) (string, error) {
	kind, ok := entityKinds[intent]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownIntent, intent)
	}
	return kind, nil
}

// Intents returns every searchable intent in the registry, in a fixed order
// suitable for exhaustive test generation.
func Intents() []model.Intent {
	out := make([]model.Intent, len(searchIntents))
	copy(out, searchIntents)
	return out
}
