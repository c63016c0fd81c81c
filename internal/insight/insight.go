// Package insight turns a user's contacts, interactions and reminders into a short list of
// prioritized suggestions produced by the language model.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/llm"
	imodel "gitlab.com/dirk.krummacker/relationship-service/internal/model"
	"gitlab.com/dirk.krummacker/relationship-service/internal/prompt"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

// ErrSchemaViolation is returned if the model's answer does not match the insight schema.
var ErrSchemaViolation = errors.New("model output does not match the insight schema")

const (
	recentInteractionsPerContact = 5
	upcomingReminderLimit        = 10
)

// Source loads everything stored for a user. *store.Store implements it.
type Source interface {
	Snapshot(ctx context.Context, userID string) (store.Snapshot, error)
}

// Generator produces insights. A nil model means that no model is configured.
type Generator struct {
	source  Source
	model   llm.ChatModel
	prompts prompt.Set
	now     func() time.Time
}

// New creates a generator.
func New(source Source, chatModel llm.ChatModel, prompts prompt.Set) *Generator {
	return &Generator{source: source, model: chatModel, prompts: prompts, now: time.Now}
}

// Generate computes the insights for the user. Users without contacts get an empty list and the
// model is not asked.
func (g *Generator) Generate(ctx context.Context, userID string) (model.InsightsResponse, error) {
	snapshot, err := g.source.Snapshot(ctx, userID)
	if err != nil {
		return model.InsightsResponse{}, err
	}
	if len(snapshot.Contacts) == 0 {
		return model.InsightsResponse{Insights: []model.Insight{}}, nil
	}
	if g.model == nil {
		return model.InsightsResponse{}, llm.ErrNotConfigured
	}

	now := g.now().UTC()
	encoded, err := json.Marshal(summarize(snapshot, now))
	if err != nil {
		return model.InsightsResponse{}, err
	}

	raw, err := g.model.CompleteJSON(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: g.prompts.Insights(now)},
		{Role: llm.RoleUser, Content: string(encoded)},
	}, llm.ResponseSchema{
		Name:        "relationship_insights",
		Description: "Prioritized suggestions about the user's relationships",
		Schema:      responseSchema,
	})
	if err != nil {
		return model.InsightsResponse{}, err
	}

	insights, err := decode(raw, knownContacts(snapshot.Contacts))
	if err != nil {
		return model.InsightsResponse{}, err
	}
	log.Debug().Str("user_id", userID).Int("insights", len(insights)).Msg("generated insights")
	return model.InsightsResponse{Insights: insights, GeneratedAt: &now}, nil
}

type output struct {
	Insights []model.Insight `json:"insights" validate:"min=3,max=5,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode parses and validates the model's answer and sorts it by priority. Contact ids that do
// not belong to the user are dropped.
func decode(raw string, contacts map[string]bool) ([]model.Insight, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()
	var out output
	if err := decoder.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	for i := range out.Insights {
		id := out.Insights[i].ContactID
		if id != nil && (*id == "" || !contacts[*id]) {
			out.Insights[i].ContactID = nil
		}
	}
	if err := validate.Struct(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	sort.SliceStable(out.Insights, func(i, j int) bool {
		return rank(out.Insights[i].Priority) < rank(out.Insights[j].Priority)
	})
	return out.Insights, nil
}

func rank(priority string) int {
	switch priority {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}

func knownContacts(contacts []imodel.Contact) map[string]bool {
	known := make(map[string]bool, len(contacts))
	for _, c := range contacts {
		known[c.ID] = true
	}
	return known
}

var responseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"insights": map[string]interface{}{
			"type":     "array",
			"minItems": 3,
			"maxItems": 5,
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":            map[string]interface{}{"type": "string"},
					"description":      map[string]interface{}{"type": "string"},
					"priority":         map[string]interface{}{"type": "string", "enum": []string{"high", "medium", "low"}},
					"category":         map[string]interface{}{"type": "string", "enum": []string{"reconnect", "follow_up", "birthday", "relationship_health", "opportunity"}},
					"suggested_action": map[string]interface{}{"type": "string"},
					"contact_id":       map[string]interface{}{"type": "string"},
				},
				"required":             []string{"title", "description", "priority", "category", "suggested_action"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"insights"},
	"additionalProperties": false,
}
