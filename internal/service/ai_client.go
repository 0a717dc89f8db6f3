package service

import (
	"context"

	"jobchat/internal/model"
)

// AIClient is the interface for the external language-model collaborator.
type AIClient interface {
	// Classify sends the role-tagged conversation history and returns the raw
	// intent label, parameter payload and confidence, before any registry
	// validation.
	Classify(ctx context.Context, history []model.Turn) (*ClassificationResult, error)

	// Reply produces a direct conversational answer for general-chat turns.
	Reply(ctx context.Context, history []model.Turn) (string, error)

	// CreateEmbeddings generates embeddings for texts.
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the client is configured and ready.
	IsEnabled() bool
}

// ClassificationResult is the untyped classifier payload. Parameters is
// matched against the schema registry by the classifier adapter; nothing
// beyond what the registry declares is ever assumed about its fields.
type ClassificationResult struct {
	Intent     string         `json:"intent"`
	Parameters map[string]any `json:"parameters"`
	Confidence float64        `json:"confidence"`
}
