package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobchat/internal/model"
	"jobchat/internal/session"
)

// TurnLogger records completed search turns for analytics. Implementations
// must tolerate being called from a background goroutine.
type TurnLogger interface {
	LogTurn(ctx context.Context, entry TurnLogEntry) error
}

// TurnLogEntry is one completed search turn.
type TurnLogEntry struct {
	SessionID   string
	Message     string
	Intent      model.Intent
	Confidence  float64
	ResultCount int
	TookMs      int64
}

const clarifyPrompt = "I'm not sure what you're looking for. Could you describe it differently? " +
	"For example: \"senior backend jobs in Hanoi over $2000\" or \"reviews about FPT Software\"."

// ChatService orchestrates conversation turns: it invokes the classifier,
// compiles and dispatches searches, and maintains per-session history.
// Turns for the same session are serialized; different sessions proceed in
// parallel with no coordination.
type ChatService struct {
	classifier *Classifier
	dispatcher *Dispatcher
	ai         AIClient
	sessions   session.Store
	turnLog    TurnLogger // optional
	threshold  float64
	logger     *zap.Logger

	locks sync.Map // sessionID -> *sync.Mutex
}

// NewChatService creates the conversation orchestrator. turnLog may be nil.
func NewChatService(
	classifier *Classifier,
	dispatcher *Dispatcher,
	ai AIClient,
	sessions session.Store,
	turnLog TurnLogger,
	confidenceThreshold float64,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		classifier: classifier,
		dispatcher: dispatcher,
		ai:         ai,
		sessions:   sessions,
		turnLog:    turnLog,
		threshold:  confidenceThreshold,
		logger:     logger,
	}
}

// History returns the session's turn history.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	return s.sessions.History(ctx, sessionID)
}

// HandleTurn handles one user turn. Classifier-side failures degrade to a
// clarification result; persistence failures are the only errors surfaced to
// the caller. On cancellation before classification completes, nothing is
// appended to session history.
func (s *ChatService) HandleTurn(ctx context.Context, sessionID, text string, page model.Page) (*model.TurnResult, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	start := time.Now()

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		// A lost history degrades context, not the turn.
		s.logger.Warn("failed to load session history",
			zap.String("session_id", sessionID),
			zap.Error(err))
		history = nil
	}

	userTurn := model.Turn{Role: model.RoleUser, Text: text, At: time.Now()}
	turns := append(history, userTurn)

	intent, bag, confidence, err := s.classifier.Resolve(ctx, turns)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		s.logger.Warn("classification degraded to clarification",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return s.finishTurn(ctx, sessionID, userTurn, &model.TurnResult{
			Kind:   model.TurnKindClarify,
			Prompt: clarifyPrompt,
		})
	}

	s.logger.Info("turn classified",
		zap.String("session_id", sessionID),
		zap.String("intent", string(intent)),
		zap.Float64("confidence", confidence),
		zap.Int("fields", bag.Len()))

	if intent == model.IntentGeneralChat {
		reply := s.chatReply(ctx, turns)
		return s.finishTurn(ctx, sessionID, userTurn, &model.TurnResult{
			Kind:  model.TurnKindChat,
			Reply: reply,
		})
	}

	if intent == model.IntentUnclear || confidence < s.threshold {
		return s.finishTurn(ctx, sessionID, userTurn, &model.TurnResult{
			Kind:   model.TurnKindClarify,
			Prompt: clarifyPrompt,
		})
	}

	pred, err := Compile(intent, bag)
	if err != nil {
		// Registry gap: logged as a defect, degrades to clarification.
		s.logger.Error("predicate compilation failed",
			zap.String("intent", string(intent)),
			zap.Error(err))
		return s.finishTurn(ctx, sessionID, userTurn, &model.TurnResult{
			Kind:   model.TurnKindClarify,
			Prompt: clarifyPrompt,
		})
	}

	result, err := s.dispatcher.Execute(ctx, intent, pred, page)
	if err != nil {
		// Surfaced as a turn failure; history keeps no trace of this turn.
		return nil, err
	}

	summary := summarize(intent, result)
	took := time.Since(start).Milliseconds()

	if s.turnLog != nil {
		entry := TurnLogEntry{
			SessionID:   sessionID,
			Message:     text,
			Intent:      intent,
			Confidence:  confidence,
			ResultCount: result.TotalCount,
			TookMs:      took,
		}
		go func() {
			if err := s.turnLog.LogTurn(context.Background(), entry); err != nil {
				s.logger.Warn("failed to log turn", zap.Error(err))
			}
		}()
	}

	return s.finishTurn(ctx, sessionID, userTurn, &model.TurnResult{
		Kind:    model.TurnKindResults,
		Intent:  intent,
		Page:    result,
		Summary: summary,
	})
}

// finishTurn appends the user's turn and the system's reply to the session
// history, preserving order, then returns the result.
func (s *ChatService) finishTurn(ctx context.Context, sessionID string, userTurn model.Turn, result *model.TurnResult) (*model.TurnResult, error) {
	reply := result.Summary
	switch result.Kind {
	case model.TurnKindClarify:
		reply = result.Prompt
	case model.TurnKindChat:
		reply = result.Reply
	}

	systemTurn := model.Turn{Role: model.RoleSystem, Text: reply, At: time.Now()}
	if err := s.sessions.Append(ctx, sessionID, userTurn, systemTurn); err != nil {
		s.logger.Warn("failed to append session history",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	return result, nil
}

// chatReply asks the model for a conversational answer, falling back to a
// canned reply when the model is unavailable.
func (s *ChatService) chatReply(ctx context.Context, turns []model.Turn) string {
	if s.ai != nil && s.ai.IsEnabled() {
		reply, err := s.ai.Reply(ctx, turns)
		if err == nil && reply != "" {
			return reply
		}
		if err != nil {
			s.logger.Warn("chat reply failed", zap.Error(err))
		}
	}
	return "Happy to help! Tell me what you're looking for: jobs, people, plans, reviews, applications or companies."
}

// resultNouns names each intent's result set for summaries.
var resultNouns = map[model.Intent]string{
	model.IntentJobSearch:            "job postings",
	model.IntentUserSearch:           "profiles",
	model.IntentSubscriptionSearch:   "subscription plans",
	model.IntentCompanyInfo:          "companies",
	model.IntentEmployerReviewSearch: "employer reviews",
	model.IntentApplicationSearch:    "applications",
}

// summarize renders a natural-language-friendly summary of a result page.
func summarize(intent model.Intent, page *model.PagedResult) string {
	noun := resultNouns[intent]
	if noun == "" {
		noun = "results"
	}

	if page.TotalCount == 0 {
		return fmt.Sprintf("No %s matched your request. Try loosening a filter.", noun)
	}

	totalPages := (page.TotalCount + page.PageSize - 1) / page.PageSize
	if totalPages > 1 {
		return fmt.Sprintf("Found %d %s (showing page %d of %d).",
			page.TotalCount, noun, page.PageNumber, totalPages)
	}
	return fmt.Sprintf("Found %d %s.", page.TotalCount, noun)
}

// lockSession serializes turns per session: at most one in-flight turn per
// session at a time.
func (s *ChatService) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
