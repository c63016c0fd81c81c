// Package assistant implements the chat assistant. The model is offered a fixed set of tools that
// act on the user's data. The assistant runs the tool calls the model requests and feeds the
// results back until the model answers with plain text.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/llm"
	"gitlab.com/dirk.krummacker/relationship-service/internal/prompt"
	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

// Config is read with the prefix ASSISTANT.
type Config struct {
	// MaxIterations bounds the number of model calls per turn.
	MaxIterations int `split_words:"true" default:"5"`
}

// Assistant answers chat messages. A nil model means that no model is configured; Reply then
// fails with llm.ErrNotConfigured.
type Assistant struct {
	model         llm.ChatModel
	registry      *Registry
	prompts       prompt.Set
	maxIterations int
	now           func() time.Time
}

// New creates an assistant.
func New(chatModel llm.ChatModel, registry *Registry, prompts prompt.Set, cfg Config) *Assistant {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 5
	}
	return &Assistant{
		model:         chatModel,
		registry:      registry,
		prompts:       prompts,
		maxIterations: maxIterations,
		now:           time.Now,
	}
}

// Reply answers the message of the user in the context of the earlier turns. Every tool call the
// model requests is checked before any of them runs. The executed calls are reported in the
// response.
func (a *Assistant) Reply(ctx context.Context, userID string, message string, history []model.ChatTurn) (model.ChatResponse, error) {
	if a.model == nil {
		return model.ChatResponse{}, llm.ErrNotConfigured
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.prompts.Assistant(a.now())})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: llm.Role(turn.Role), Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	executed := []model.ToolCall{}
	for iteration := 0; iteration < a.maxIterations; iteration++ {
		completion, err := a.model.Complete(ctx, messages, a.registry.Specs())
		if err != nil {
			return model.ChatResponse{}, err
		}
		if len(completion.ToolCalls) == 0 {
			return model.ChatResponse{Message: completion.Content, ToolCalls: executed}, nil
		}

		calls, err := a.registry.Prepare(completion.ToolCalls)
		if err != nil {
			return model.ChatResponse{}, err
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range calls {
			result, err := call.Execute(ctx, userID)
			if err != nil {
				return model.ChatResponse{}, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			encoded, err := json.Marshal(result)
			if err != nil {
				return model.ChatResponse{}, fmt.Errorf("tool %s result: %w", call.Name, err)
			}
			log.Debug().Str("tool", call.Name).Str("user_id", userID).Int("iteration", iteration).Msg("executed tool call")

			messages = append(messages, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: string(encoded)})
			executed = append(executed, model.ToolCall{Name: call.Name, Arguments: call.Arguments})
		}
	}

	return model.ChatResponse{}, fmt.Errorf("%w (%d)", ErrTooManyIterations, a.maxIterations)
}
