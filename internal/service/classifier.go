package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobchat/internal/model"
	"jobchat/internal/schema"
)

// Classifier adapts the external language-model classifier to the closed
// intent set and the schema registry.
type Classifier struct {
	ai         AIClient
	logger     *zap.Logger
	timeout    time.Duration
	retryDelay time.Duration
}

// NewClassifier creates a classifier adapter. timeout bounds each external
// call; the classification step should stay short.
func NewClassifier(ai AIClient, timeout time.Duration, logger *zap.Logger) *Classifier {
	return &Classifier{
		ai:         ai,
		logger:     logger,
		timeout:    timeout,
		retryDelay: 500 * time.Millisecond,
	}
}

// Resolve classifies the conversation history and decodes the returned
// parameter payload strictly against the registry schema for the resolved
// intent. Unknown intent labels coerce to Unclear; unknown payload fields are
// ignored; empty and type-mismatched values are dropped.
func (c *Classifier) Resolve(ctx context.Context, history []model.Turn) (model.Intent, *model.ParameterBag, float64, error) {
	raw, err := c.classifyWithRetry(ctx, history)
	if err != nil {
		return model.IntentUnclear, nil, 0, err
	}

	intent := model.ParseIntent(raw.Intent)
	confidence := clampConfidence(raw.Confidence)

	if !intent.Searchable() {
		return intent, model.NewParameterBag(intent), confidence, nil
	}

	specs, err := schema.SchemaFor(intent)
	if err != nil {
		// Registry gap: a defect, but never fatal for the turn.
		c.logger.Error("intent missing from schema registry",
			zap.String("intent", string(intent)),
			zap.Error(err))
		return model.IntentUnclear, model.NewParameterBag(model.IntentUnclear), confidence, nil
	}

	return intent, c.decodeBag(intent, specs, raw.Parameters), confidence, nil
}

// classifyWithRetry calls the external classifier with a per-attempt timeout,
// retrying once on transient failure. Malformed responses are not retried.
func (c *Classifier) classifyWithRetry(ctx context.Context, history []model.Turn) (*ClassificationResult, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		result, err := c.ai.Classify(callCtx, history)
		cancel()

		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrMalformedResult) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Warn("classification attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		lastErr = err
	}

	return nil, errors.Join(ErrClassificationUnavailable, lastErr)
}

// decodeBag builds a parameter bag from the raw payload, keeping only values
// that match the registry's declared type for their field.
func (c *Classifier) decodeBag(intent model.Intent, specs []schema.FieldSpec, params map[string]any) *model.ParameterBag {
	bag := model.NewParameterBag(intent)
	if params == nil {
		return bag
	}

	for _, spec := range specs {
		raw, ok := params[spec.Name]
		if !ok || raw == nil {
			continue
		}

		// Empty collections normalize to absent.
		if arr, isArr := raw.([]any); isArr && len(arr) == 0 {
			continue
		}

		switch spec.Type {
		case schema.TypeText:
			s, ok := raw.(string)
			if !ok {
				c.logDegraded(intent, spec.Name, raw)
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			bag.Set(spec.Name, s)

		case schema.TypeNumber:
			f, ok := raw.(float64)
			if !ok {
				c.logDegraded(intent, spec.Name, raw)
				continue
			}
			bag.Set(spec.Name, f)

		case schema.TypeBool:
			b, ok := raw.(bool)
			if !ok {
				c.logDegraded(intent, spec.Name, raw)
				continue
			}
			bag.Set(spec.Name, b)
		}
	}

	return bag
}

func (c *Classifier) logDegraded(intent model.Intent, field string, raw any) {
	c.logger.Warn("degraded extraction: dropping type-mismatched field",
		zap.String("intent", string(intent)),
		zap.String("field", field),
		zap.Any("value", raw))
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
