package assistant

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

// Store is the data access the tools need. *store.Store implements it.
type Store interface {
	CreateContact(ctx context.Context, userID string, c model.Contact) (model.Contact, error)
	ListContacts(ctx context.Context, userID string, f store.ContactFilter) ([]model.Contact, error)
	CreateInteraction(ctx context.Context, userID string, i model.Interaction) (model.Interaction, error)
	CreateReminder(ctx context.Context, userID string, r model.Reminder) (model.Reminder, error)
	ListReminders(ctx context.Context, userID string, f store.ReminderFilter) ([]model.Reminder, error)
}

const defaultToolListLimit = 20

type createContactArgs struct {
	Name     string `json:"name"               validate:"required,max=255"`
	Email    string `json:"email,omitempty"    validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty"    validate:"omitempty,max=64"`
	Category string `json:"category,omitempty" validate:"omitempty,oneof=family friend colleague business acquaintance other"`
	Birthday string `json:"birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes    string `json:"notes,omitempty"`
}

type listContactsArgs struct {
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty" validate:"omitempty,oneof=family friend colleague business acquaintance other"`
	Limit    int    `json:"limit,omitempty"    validate:"omitempty,min=1,max=100"`
}

type logInteractionArgs struct {
	ContactID       string     `json:"contact_id"                 validate:"required,uuid"`
	Type            string     `json:"type"                       validate:"required,oneof=call meeting email text other"`
	OccurredAt      *time.Time `json:"occurred_at,omitempty"`
	Location        string     `json:"location,omitempty"         validate:"omitempty,max=255"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	Notes           string     `json:"notes,omitempty"`
}

type createReminderArgs struct {
	ContactID    string    `json:"contact_id,omitempty" validate:"omitempty,uuid"`
	Type         string    `json:"type"                 validate:"required,oneof=birthday follow_up custom anniversary"`
	Message      string    `json:"message"              validate:"required"`
	ReminderDate time.Time `json:"reminder_date"        validate:"required"`
}

type listRemindersArgs struct {
	Upcoming  bool   `json:"upcoming,omitempty"`
	Status    string `json:"status,omitempty"     validate:"omitempty,oneof=active dismissed completed"`
	ContactID string `json:"contact_id,omitempty" validate:"omitempty,uuid"`
	Limit     int    `json:"limit,omitempty"      validate:"omitempty,min=1,max=100"`
}

// Tools returns the tool set of the assistant, backed by the store.
func Tools(s Store) []Tool {
	return []Tool{
		NewTool("create_contact", "Create a new contact for the user.",
			object(map[string]interface{}{
				"name":     str("Full name of the person"),
				"email":    str("Email address"),
				"phone":    str("Phone number"),
				"category": enum("Relationship category", "family", "friend", "colleague", "business", "acquaintance", "other"),
				"birthday": str("Birthday as YYYY-MM-DD"),
				"notes":    str("Free-form notes"),
			}, "name"),
			func(ctx context.Context, userID string, args createContactArgs) (model.Contact, error) {
				c := model.Contact{
					Name:     &args.Name,
					Email:    optional(args.Email),
					Phone:    optional(args.Phone),
					Category: optional(args.Category),
					Notes:    optional(args.Notes),
				}
				if args.Birthday != "" {
					birthday, err := time.Parse("2006-01-02", args.Birthday)
					if err != nil {
						return model.Contact{}, fmt.Errorf("birthday: %w", err)
					}
					c.Birthday = &birthday
				}
				return s.CreateContact(ctx, userID, c)
			}),

		NewTool("list_contacts", "List the user's contacts, optionally filtered by name prefix or category.",
			object(map[string]interface{}{
				"name":     str("Name prefix to search for"),
				"category": enum("Relationship category", "family", "friend", "colleague", "business", "acquaintance", "other"),
				"limit":    integer("Maximum number of contacts, 1 to 100"),
			}),
			func(ctx context.Context, userID string, args listContactsArgs) ([]model.Contact, error) {
				return s.ListContacts(ctx, userID, store.ContactFilter{
					Name:     args.Name,
					Category: args.Category,
					Limit:    limitOrDefault(args.Limit),
					OrderBy:  "name",
				})
			}),

		NewTool("log_interaction", "Record an interaction with one of the user's contacts.",
			object(map[string]interface{}{
				"contact_id":       str("Id of the contact, as returned by list_contacts"),
				"type":             enum("Kind of interaction", "call", "meeting", "email", "text", "other"),
				"occurred_at":      str("When it happened, RFC 3339 timestamp. Defaults to now"),
				"location":         str("Where it happened"),
				"duration_minutes": integer("Duration in minutes"),
				"notes":            str("What was talked about"),
			}, "contact_id", "type"),
			func(ctx context.Context, userID string, args logInteractionArgs) (model.Interaction, error) {
				return s.CreateInteraction(ctx, userID, model.Interaction{
					ContactID:       &args.ContactID,
					Type:            &args.Type,
					OccurredAt:      args.OccurredAt,
					Location:        optional(args.Location),
					DurationMinutes: args.DurationMinutes,
					Notes:           optional(args.Notes),
				})
			}),

		NewTool("create_reminder", "Create a reminder, optionally about one contact.",
			object(map[string]interface{}{
				"contact_id":    str("Id of the contact the reminder is about"),
				"type":          enum("Kind of reminder", "birthday", "follow_up", "custom", "anniversary"),
				"message":       str("Text of the reminder"),
				"reminder_date": str("When to remind, RFC 3339 timestamp"),
			}, "type", "message", "reminder_date"),
			func(ctx context.Context, userID string, args createReminderArgs) (model.Reminder, error) {
				return s.CreateReminder(ctx, userID, model.Reminder{
					ContactID:    optional(args.ContactID),
					Type:         &args.Type,
					Message:      &args.Message,
					ReminderDate: &args.ReminderDate,
				})
			}),

		NewTool("list_reminders", "List the user's reminders, soonest first.",
			object(map[string]interface{}{
				"upcoming":   map[string]interface{}{"type": "boolean", "description": "Only reminders that are still ahead and neither dismissed nor completed"},
				"status":     enum("Reminder status", "active", "dismissed", "completed"),
				"contact_id": str("Only reminders about this contact"),
				"limit":      integer("Maximum number of reminders, 1 to 100"),
			}),
			func(ctx context.Context, userID string, args listRemindersArgs) ([]model.Reminder, error) {
				return s.ListReminders(ctx, userID, store.ReminderFilter{
					Upcoming:  args.Upcoming,
					Status:    args.Status,
					ContactID: args.ContactID,
					Limit:     limitOrDefault(args.Limit),
				})
			}),
	}
}

func object(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func integer(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func enum(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultToolListLimit
	}
	return limit
}
