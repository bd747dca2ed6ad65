package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nkoval/form-autofill/internal/core/domain"
	"github.com/nkoval/form-autofill/internal/infrastructure/resilience"
)

// Client issues structured completions against the OpenAI chat API. Each
// Suggest call is exactly one request: a breaker protects the dependency, but
// a failed call is never replayed.
type Client struct {
	api      *openai.Client
	model    string
	spec     *SuggestionSpec
	executor *resilience.Executor
}

func New(apiKey, model string) (*Client, error) {
	return NewWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewWithConfig allows pointing the client at a compatible endpoint.
func NewWithConfig(cfg openai.ClientConfig, model string) (*Client, error) {
	spec, err := LoadSuggestionSpec()
	if err != nil {
		return nil, err
	}
	return &Client{
		api:      openai.NewClientWithConfig(cfg),
		model:    model,
		spec:     spec,
		executor: resilience.NewExecutor(resilience.SingleAttempt()),
	}, nil
}

func (c *Client) Suggest(ctx context.Context, textContent string) (domain.SuggestionSet, error) {
	var set domain.SuggestionSet

	call := func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: c.spec.SystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: textContent},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   c.spec.Name,
					Schema: c.spec.SchemaJSON,
					Strict: true,
				},
			},
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("completion returned no choices")
		}

		parsed, err := decodeSuggestions(c.spec, resp.Choices[0].Message.Content)
		if err != nil {
			return err
		}
		set = parsed
		return nil
	}

	err := c.executor.Execute(ctx, "openai.suggest", call, classifyCompletionError)
	if err != nil {
		return domain.SuggestionSet{}, err
	}
	return set, nil
}

func decodeSuggestions(spec *SuggestionSpec, content string) (domain.SuggestionSet, error) {
	var payload any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.SuggestionSet{}, fmt.Errorf("parse structured response: %w", err)
	}
	if err := spec.ValidatePayload(payload); err != nil {
		return domain.SuggestionSet{}, err
	}

	var set domain.SuggestionSet
	if err := json.Unmarshal([]byte(content), &set); err != nil {
		return domain.SuggestionSet{}, fmt.Errorf("decode suggestion set: %w", err)
	}
	if set.CompanyNames == nil {
		set.CompanyNames = []string{}
	}
	if set.Emails == nil {
		set.Emails = []string{}
	}
	if set.FullAddresses == nil {
		set.FullAddresses = []string{}
	}
	return set, nil
}
