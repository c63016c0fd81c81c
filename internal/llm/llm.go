// Package llm talks to an OpenAI-compatible chat completion API (OpenRouter by default). It offers
// two calls: a chat completion with tools, and a completion constrained to a JSON schema.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	// ErrNotConfigured is returned if no API key is available.
	ErrNotConfigured = errors.New("language model is not configured")
	// ErrModelInvoke wraps failures of the upstream API.
	ErrModelInvoke = errors.New("model invoke failed")
	// ErrEmptyResponse is returned if the model answered without any choice.
	ErrEmptyResponse = errors.New("model returned no choices")
)

// Config describes the upstream model. It is read with the prefix LLM, e.g. LLM_API_KEY.
type Config struct {
	BaseURL             string        `split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey              string        `split_words:"true"`
	Model               string        `split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionTokens int           `split_words:"true" default:"2000"`
	Temperature         float64       `split_words:"true" default:"0.3"`
	Timeout             time.Duration `split_words:"true" default:"60s"`
	SiteURL             string        `split_words:"true"`
	SiteName            string        `split_words:"true"`
}

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation sent to the model. Assistant messages may carry the
// tool calls the model requested, tool messages answer one of them by ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a request of the model to run a tool. Arguments is the raw JSON object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Tool declares a callable operation. Parameters is a JSON schema of the arguments object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Completion is the model's answer: text, tool calls, or both.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// ResponseSchema constrains the model output to a JSON schema.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      map[string]interface{}
	Strict      bool
}

// ChatModel is what the assistant and the insight generator need from a model.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, tools []Tool) (Completion, error)
	CompleteJSON(ctx context.Context, messages []Message, schema ResponseSchema) (string, error)
}

// completionService is the part of the openai-go client that we use.
type completionService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements ChatModel with the openai-go SDK.
type OpenAI struct {
	completions completionService
	cfg         Config
}

var _ ChatModel = (*OpenAI)(nil)

// NewClient creates an OpenAI SDK client for the configured endpoint. It returns nil if there is
// no API key. Requests are not retried.
func NewClient(cfg Config) *openai.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	// OpenRouter attribution headers
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openai.NewClient(opts...)
	return &client
}

// New returns a ChatModel for the configuration, or ErrNotConfigured without an API key.
func New(cfg Config) (*OpenAI, error) {
	client := NewClient(cfg)
	if client == nil {
		return nil, ErrNotConfigured
	}
	return &OpenAI{completions: &client.Chat.Completions, cfg: cfg}, nil
}

// Complete sends the conversation with the declared tools.
func (o *OpenAI) Complete(ctx context.Context, messages []Message, tools []Tool) (Completion, error) {
	params, err := o.params(messages)
	if err != nil {
		return Completion{}, err
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}

	res, err := o.completions.New(ctx, params)
	if err != nil {
		return Completion{}, fmt.Errorf("%w: %v", ErrModelInvoke, err)
	}
	if len(res.Choices) == 0 {
		return Completion{}, ErrEmptyResponse
	}

	choice := res.Choices[0]
	out := Completion{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// CompleteJSON sends the conversation and asks for a reply matching the schema. The raw JSON text
// is returned; validating it is up to the caller.
func (o *OpenAI) CompleteJSON(ctx context.Context, messages []Message, schema ResponseSchema) (string, error) {
	params, err := o.params(messages)
	if err != nil {
		return "", err
	}
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        schema.Name,
				Description: openai.String(schema.Description),
				Schema:      schema.Schema,
				Strict:      openai.Bool(schema.Strict),
			},
		},
	}

	res, err := o.completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelInvoke, err)
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return res.Choices[0].Message.Content, nil
}

func (o *OpenAI) params(messages []Message) (openai.ChatCompletionNewParams, error) {
	converted, err := toParams(messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.cfg.Model),
		Messages:    converted,
		Temperature: openai.Float(o.cfg.Temperature),
	}
	if o.cfg.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.cfg.MaxCompletionTokens))
	}
	return params, nil
}

func toParams(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			msg := openai.AssistantMessage(m.Content)
			for _, tc := range m.ToolCalls {
				msg.OfAssistant.ToolCalls = append(msg.OfAssistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, msg)
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}
