package model

import "time"

// MatchKind is the comparison semantics applied to one field.
type MatchKind string

const (
	MatchExact      MatchKind = "exact"       // stored value equals field value (case-insensitive text)
	MatchSubstring  MatchKind = "substring"   // stored value contains field value (case-insensitive)
	MatchRangeMin   MatchKind = "range_min"   // stored numeric field >= field value
	MatchRangeMax   MatchKind = "range_max"   // stored numeric field <= field value
	MatchPresence   MatchKind = "presence"    // stored field is non-empty (true) or empty (false)
	MatchBoolEquals MatchKind = "bool_equals" // stored boolean field equals field value
)

// Condition is one field-level match against an entity collection. Path is
// the dotted join path from the collection's root entity to the field.
type Condition struct {
	Path  string    `json:"path"`
	Kind  MatchKind `json:"kind"`
	Value any       `json:"value"`
}

// Predicate is an ordered conjunction of conditions. Conditions combine with
// AND only; a predicate with zero conditions selects the whole collection.
type Predicate struct {
	Conditions []Condition `json:"conditions"`
}

// Page is a 1-based pagination request.
type Page struct {
	Number int `json:"number"`
	Size   int `json:"size"`
}

// PagedResult is one page of search results from any entity collection.
type PagedResult struct {
	Items      []any `json:"items"`
	PageNumber int   `json:"page_number"`
	PageSize   int   `json:"page_size"`
	TotalCount int   `json:"total_count"`
}

// Turn roles as exchanged with the classifier collaborator.
const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// Turn is one entry in a conversation session.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// TurnResult kinds.
const (
	TurnKindResults = "results"
	TurnKindClarify = "clarify"
	TurnKindChat    = "chat"
)

// TurnResult is the outcome of one handled conversation turn.
type TurnResult struct {
	Kind    string       `json:"kind"`
	Intent  Intent       `json:"intent,omitempty"`
	Page    *PagedResult `json:"page,omitempty"`
	Summary string       `json:"summary,omitempty"`
	Prompt  string       `json:"prompt,omitempty"`
	Reply   string       `json:"reply,omitempty"`
}

// ChatRequest is the transport-level request for one turn.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" binding:"required"`
	Page      *Page  `json:"page,omitempty"`
}

// ChatResponse wraps a turn result with session and timing info.
type ChatResponse struct {
	SessionID string      `json:"session_id"`
	Result    *TurnResult `json:"result"`
	Took      int64       `json:"took_ms"`
}
