package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"jobchat/internal/model"
	"jobchat/internal/session"
)

func newTestChatService(ai AIClient, searcher Searcher) *ChatService {
	logger := zap.NewNop()
	classifier := NewClassifier(ai, time.Second, logger)
	classifier.retryDelay = time.Millisecond
	dispatcher := NewDispatcher(searcher, 20, 100)
	return NewChatService(classifier, dispatcher, ai, session.NewMemoryStore(40), nil, 0.5, logger)
}

func TestHandleTurn_Results(t *testing.T) {
	ai := &fakeAI{result: &ClassificationResult{
		Intent:     "JobSearch",
		Parameters: map[string]any{"title": "backend", "min_salary": 1000.0},
		Confidence: 0.9,
	}}
	searcher := &fakeSearcher{result: &model.PagedResult{
		Items:      []any{"job-1", "job-2"},
		PageNumber: 1,
		PageSize:   20,
		TotalCount: 2,
	}}
	svc := newTestChatService(ai, searcher)

	result, err := svc.HandleTurn(context.Background(), "s1", "backend jobs over $1000", model.Page{})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if result.Kind != model.TurnKindResults {
		t.Fatalf("kind = %s, want results", result.Kind)
	}
	if result.Intent != model.IntentJobSearch {
		t.Errorf("intent = %s, want JobSearch", result.Intent)
	}
	if result.Summary != "Found 2 job postings." {
		t.Errorf("summary = %q", result.Summary)
	}
	if searcher.gotKind != "jobs" {
		t.Errorf("searched kind = %q, want jobs", searcher.gotKind)
	}
	if len(searcher.gotPred.Conditions) != 2 {
		t.Errorf("predicate has %d conditions, want 2", len(searcher.gotPred.Conditions))
	}

	turns, err := svc.History(context.Background(), "s1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("history has %d turns, want 2", len(turns))
	}
	if turns[0].Role != model.RoleUser || turns[0].Text != "backend jobs over $1000" {
		t.Errorf("first turn = %+v, want the user's message", turns[0])
	}
	if turns[1].Role != model.RoleSystem || turns[1].Text != result.Summary {
		t.Errorf("second turn = %+v, want the summary", turns[1])
	}
}

func TestHandleTurn_MultiPageSummary(t *testing.T) {
	ai := &fakeAI{result: &ClassificationResult{Intent: "UserSearch", Confidence: 0.8}}
	searcher := &fakeSearcher{result: &model.PagedResult{
		Items:      make([]any, 20),
		PageNumber: 2,
		PageSize:   20,
		TotalCount: 47,
	}}
	svc := newTestChatService(ai, searcher)

	result, err := svc.HandleTurn(context.Background(), "s1", "show me people", model.Page{Number: 2})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if result.Summary != "Found 47 profiles (showing page 2 of 3)." {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestHandleTurn_LowConfidenceClarifies(t *testing.T) {
	ai := &fakeAI{result: &ClassificationResult{
		Intent:     "JobSearch",
		Parameters: map[string]any{"title": "backend"},
		Confidence: 0.3,
	}}
	searcher := &fakeSearcher{result: &model.PagedResult{}}
	svc := newTestChatService(ai, searcher)

	result, err := svc.HandleTurn(context.Background(), "s1", "uh, stuff?", model.Page{})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if result.Kind != model.TurnKindClarify {
		t.Fatalf("kind = %s, want clarify", result.Kind)
	}
	if result.Prompt == "" {
		t.Error("clarification prompt is empty")
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times on low confidence, want 0", searcher.calls)
	}

	turns, _ := svc.History(context.Background(), "s1")
	if len(turns) != 2 {
		t.Errorf("history has %d turns, want 2 (clarification is still a turn)", len(turns))
	}
}

func TestHandleTurn_UnclearClarifies(t *testing.T) {
	ai := &fakeAI{result: &ClassificationResult{Intent: "Unclear", Confidence: 0.95}}
	searcher := &fakeSearcher{result: &model.PagedResult{}}
	svc := newTestChatService(ai, searcher)

	result, err := svc.HandleTurn(context.Background(), "s1", "asdf", model.Page{})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if result.Kind != model.TurnKindClarify {
		t.Errorf("kind = %s, want clarify", result.Kind)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times for Unclear, want 0", searcher.calls)
	}
}

func TestHandleTurn_GeneralChat(t *testing.T) {
	ai := &fakeAI{
		result: &ClassificationResult{Intent: "GeneralChat", Confidence: 0.99},
		reply:  "Hello! How can I help with your job hunt?",
	}
	searcher := &fakeSearcher{result: &model.PagedResult{}}
	svc := newTestChatService(ai, searcher)

	result, err := svc.HandleTurn(context.Background(), "s1", "hi there", model.Page{})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if result.Kind != model.TurnKindChat {
		t.Fatalf("kind = %s, want chat", result.Kind)
	}
	if result.Reply != ai.reply {
		t.Errorf("reply = %q, want %q", result.Reply, ai.reply)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times for chat, want 0", searcher.calls)
	}

	turns, _ := svc.History(context.Background(), "s1")
	if len(turns) != 2 || turns[1].Text != ai.reply {
		t.Errorf("history = %+v, want user turn then the chat reply", turns)
	}
}

func TestHandleTurn_ChatReplyFallback(t *testing.T) {
	ai := &fakeAI{
		result:   &ClassificationResult{Intent: "GeneralChat", Confidence: 0.99},
		replyErr: errors.New("model offline"),
	}
	svc := newTestChatService(ai, &fakeSearcher{})

	result, err := svc.HandleTurn(context.Background(), "s1", "hello", model.Page{})
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if result.Reply == "" {
		t.Error("expected a canned fallback reply")
	}
	if !strings.Contains(result.Reply, "looking for") {
		t.Errorf("reply = %q, want the fallback text", result.Reply)
	}
}

func TestHandleTurn_ClassifierUnavailableClarifies(t *testing.T) {
	ai := &fakeAI{err: errors.New("upstream down")}
	searcher := &fakeSearcher{result: &model.PagedResult{}}
	svc := newTestChatService(ai, searcher)

	result, err := svc.HandleTurn(context.Background(), "s1", "backend jobs", model.Page{})
	if err != nil {
		t.Fatalf("classifier failures must degrade, got error: %v", err)
	}
	if result.Kind != model.TurnKindClarify {
		t.Errorf("kind = %s, want clarify", result.Kind)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times, want 0", searcher.calls)
	}
}

func TestHandleTurn_SearchFailureSurfaced(t *testing.T) {
	ai := &fakeAI{result: &ClassificationResult{Intent: "JobSearch", Confidence: 0.9}}
	searcher := &fakeSearcher{err: errors.New("pg down")}
	svc := newTestChatService(ai, searcher)

	result, err := svc.HandleTurn(context.Background(), "s1", "backend jobs", model.Page{})
	if !errors.Is(err, ErrSearchExecutionFailed) {
		t.Fatalf("err = %v, want ErrSearchExecutionFailed", err)
	}
	if result != nil {
		t.Errorf("got result %+v, want nil", result)
	}

	turns, _ := svc.History(context.Background(), "s1")
	if len(turns) != 0 {
		t.Errorf("failed turn left %d entries in history, want 0", len(turns))
	}
}

func TestHandleTurn_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ai := &fakeAI{result: &ClassificationResult{Intent: "JobSearch", Confidence: 0.9}}
	svc := newTestChatService(ai, &fakeSearcher{})

	_, err := svc.HandleTurn(ctx, "s1", "backend jobs", model.Page{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	turns, _ := svc.History(context.Background(), "s1")
	if len(turns) != 0 {
		t.Errorf("cancelled turn left %d entries in history, want 0", len(turns))
	}
}

func TestHandleTurn_SessionsAreIndependent(t *testing.T) {
	ai := &fakeAI{result: &ClassificationResult{Intent: "GeneralChat", Confidence: 0.9}, reply: "hi"}
	svc := newTestChatService(ai, &fakeSearcher{})

	if _, err := svc.HandleTurn(context.Background(), "a", "hello", model.Page{}); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if _, err := svc.HandleTurn(context.Background(), "b", "hello", model.Page{}); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	turnsA, _ := svc.History(context.Background(), "a")
	turnsB, _ := svc.History(context.Background(), "b")
	if len(turnsA) != 2 || len(turnsB) != 2 {
		t.Errorf("histories = %d and %d turns, want 2 each", len(turnsA), len(turnsB))
	}
}
