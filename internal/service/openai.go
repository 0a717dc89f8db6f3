package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobchat/internal/config"
	"jobchat/internal/model"
	"jobchat/internal/schema"
	"jobchat/internal/utils"
)

// Ensure OpenAIClient implements AIClient.
var _ AIClient = (*OpenAIClient)(nil)

// OpenAIClient talks to an OpenAI-compatible chat completion and embedding API.
type OpenAIClient struct {
	config     *config.OpenAIConfig
	httpClient *http.Client
	logger     *zap.Logger

	classifierPrompt string
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg *config.OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		classifierPrompt: buildClassifierPrompt(),
	}
}

// IsEnabled returns whether the client is configured and ready.
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request.
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatMessage represents a single message in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response.
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest represents an embedding request.
type EmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// EmbeddingResponse represents the embedding API response.
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatCompletion performs a chat completion request.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// Classify sends the conversation history to the model and parses the raw
// classification payload. A response that cannot be parsed as minimally
// valid JSON fails with ErrMalformedResult; transport failures are returned
// as-is for the adapter to treat as unavailability.
func (c *OpenAIClient) Classify(ctx context.Context, history []model.Turn) (*ClassificationResult, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: c.classifierPrompt})
	for _, turn := range history {
		role := "user"
		if turn.Role == model.RoleSystem {
			role = "assistant"
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Text})
	}

	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Messages:       messages,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedResult)
	}

	content := resp.Choices[0].Message.Content
	var result ClassificationResult
	if err := utils.ParseAIJSON(content, &result); err != nil {
		c.logger.Warn("classifier response is not valid JSON",
			zap.String("content", content),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if result.Intent == "" {
		return nil, fmt.Errorf("%w: missing intent label", ErrMalformedResult)
	}

	return &result, nil
}

// Reply produces a short conversational answer for general-chat turns.
func (c *OpenAIClient) Reply(ctx context.Context, history []model.Turn) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{
		Role: "system",
		Content: "You are a friendly assistant for a job platform. Answer briefly. " +
			"If the user seems to want to search for jobs, people, plans, reviews, " +
			"applications or companies, suggest they describe what they are looking for.",
	})
	for _, turn := range history {
		role := "user"
		if turn.Role == model.RoleSystem {
			role = "assistant"
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Text})
	}

	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CreateEmbeddings creates embeddings for the given texts, batched.
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	batchSize := c.config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := c.createEmbeddingBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for batch %d: %w", i/batchSize, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)

		// Rate limiting: small delay between batches
		if end < len(texts) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	return allEmbeddings, nil
}

func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := EmbeddingRequest{
		Model:      c.config.EmbeddingModel,
		Input:      texts,
		Dimensions: c.config.EmbeddingDimensions,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	c.logger.Debug("created embeddings",
		zap.Int("count", len(embeddings)),
		zap.String("model", result.Model),
		zap.Int("tokens", result.Usage.TotalTokens))

	return embeddings, nil
}

// buildClassifierPrompt renders the system prompt from the schema registry so
// the model is only ever asked for fields the registry declares.
func buildClassifierPrompt() string {
	var b strings.Builder

	b.WriteString(`You are the intent classifier for a job platform assistant. Given the conversation, classify the user's latest request into exactly one intent and extract search parameters.

Respond ONLY with valid JSON of the form:
{"intent": "<intent>", "parameters": {...}, "confidence": <0..1>}

Intents and their parameters (all parameters optional, omit anything not mentioned):
`)

	for _, intent := range schema.Intents() {
		specs, err := schema.SchemaFor(intent)
		if err != nil {
			continue
		}
		fields := make([]string, 0, len(specs))
		for _, spec := range specs {
			fields = append(fields, fmt.Sprintf("%s (%s)", spec.Name, spec.Type))
		}
		fmt.Fprintf(&b, "- %s: %s\n", intent, strings.Join(fields, ", "))
	}

	b.WriteString(`- GeneralChat: small talk or anything that is not a search; no parameters
- Unclear: the request is ambiguous or you cannot tell; no parameters

Rules:
- Use only the parameter names listed above.
- Salaries and prices are plain numbers: "$2k" = 2000, "1.5M" = 1500000.
- Later turns may refine earlier ones; classify the cumulative request.
- confidence reflects how sure you are about the intent, between 0 and 1.

Examples:
User: "Find senior backend jobs in Hanoi over $2000"
{"intent": "JobSearch", "parameters": {"title": "backend", "level": "senior", "location": "Hanoi", "min_salary": 2000}, "confidence": 0.95}

User: "any reviews about FPT Software rated 4 and up?"
{"intent": "EmployerReviewSearch", "parameters": {"company_name": "FPT Software", "min_rating": 4}, "confidence": 0.9}

User: "thanks, you too!"
{"intent": "GeneralChat", "parameters": {}, "confidence": 0.99}
`)

	return b.String()
}
