package model

// Intent is the closed category identifying which domain and query shape a
// user utterance maps to. Immutable once classified for a given turn.
type Intent string

const (
	IntentJobSearch            Intent = "JobSearch"
	IntentUserSearch           Intent = "UserSearch"
	IntentSubscriptionSearch   Intent = "SubscriptionSearch"
	IntentCompanyInfo          Intent = "CompanyInfo"
	IntentEmployerReviewSearch Intent = "EmployerReviewSearch"
	IntentApplicationSearch    Intent = "ApplicationSearch"
	IntentGeneralChat          Intent = "GeneralChat"
	IntentUnclear              Intent = "Unclear"
)

// ParseIntent maps a classifier label onto the closed intent set.
// Unknown labels coerce to IntentUnclear instead of failing the turn.
func ParseIntent(label string) Intent {
	switch Intent(label) {
	case IntentJobSearch, IntentUserSearch, IntentSubscriptionSearch,
		IntentCompanyInfo, IntentEmployerReviewSearch, IntentApplicationSearch,
		IntentGeneralChat, IntentUnclear:
		return Intent(label)
	default:
		return IntentUnclear
	}
}

// Searchable reports whether the intent is backed by an entity collection.
// GeneralChat and Unclear never reach the compiler or dispatcher.
func (i Intent) Searchable() bool {
	return i != IntentGeneralChat && i != IntentUnclear && i != ""
}

// ParameterBag is the typed, all-optional set of extracted search fields for
// one intent. The classifier adapter only stores values that passed schema
// validation, so a value is always a string, float64 or bool. A bag is owned
// by the turn that produced it and is never shared across requests.
type ParameterBag struct {
	intent Intent
	values map[string]any
}

// NewParameterBag returns an empty bag for intent.
func NewParameterBag(intent Intent) *ParameterBag {
	return &ParameterBag{intent: intent, values: make(map[string]any)}
}

// Intent returns the intent the bag was extracted for.
func (b *ParameterBag) Intent() Intent {
	return b.intent
}

// Set stores a field value. Nil values are ignored so absence stays absence.
func (b *ParameterBag) Set(field string, value any) {
	if value == nil {
		return
	}
	b.values[field] = value
}

// Get returns the value for field and whether it is present.
func (b *ParameterBag) Get(field string) (any, bool) {
	v, ok := b.values[field]
	return v, ok
}

// Len returns the number of present fields.
func (b *ParameterBag) Len() int {
	return len(b.values)
}
