// Package model holds the wire types of the AI endpoints and the error envelope. They are shared
// between the service and its clients.
package model

import "time"

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes what went wrong. Details is optional and free-form.
type ErrorBody struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ChatTurn is one earlier message of a conversation with the assistant.
type ChatTurn struct {
	Role    string `json:"role"    binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the body of POST /api/ai/chat.
type ChatRequest struct {
	Message string     `json:"message" binding:"required"`
	History []ChatTurn `json:"history" binding:"omitempty,dive"`
}

// ToolCall names a tool the assistant executed while answering.
type ToolCall struct {
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments,omitempty"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Message   string     `json:"message"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Insight is a single prioritized suggestion about the user's relationships.
type Insight struct {
	Title           string  `json:"title"            validate:"required"`
	Description     string  `json:"description"      validate:"required"`
	Priority        string  `json:"priority"         validate:"required,oneof=high medium low"`
	Category        string  `json:"category"         validate:"required,oneof=reconnect follow_up birthday relationship_health opportunity"`
	SuggestedAction string  `json:"suggested_action" validate:"required"`
	ContactID       *string `json:"contact_id"       validate:"omitempty,uuid"`
}

// InsightsResponse is the body of GET /api/ai/insights.
type InsightsResponse struct {
	Insights    []Insight  `json:"insights"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}
