package insight

import (
	"sort"
	"time"

	imodel "gitlab.com/dirk.krummacker/relationship-service/internal/model"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

const dateLayout = "2006-01-02"

type summary struct {
	Today             string            `json:"today"`
	Totals            totals            `json:"totals"`
	Contacts          []contactSummary  `json:"contacts"`
	UpcomingReminders []reminderSummary `json:"upcoming_reminders"`
}

type totals struct {
	Contacts        int `json:"contacts"`
	Interactions    int `json:"interactions"`
	ActiveReminders int `json:"active_reminders"`
}

type contactSummary struct {
	ID                       string               `json:"id"`
	Name                     string               `json:"name"`
	Category                 string               `json:"category,omitempty"`
	Birthday                 string               `json:"birthday,omitempty"`
	InteractionCount         int                  `json:"interaction_count"`
	LastInteraction          string               `json:"last_interaction,omitempty"`
	DaysSinceLastInteraction *int                 `json:"days_since_last_interaction,omitempty"`
	RecentInteractions       []interactionSummary `json:"recent_interactions"`
}

type interactionSummary struct {
	Type  string `json:"type"`
	Date  string `json:"date"`
	Notes string `json:"notes,omitempty"`
}

type reminderSummary struct {
	ContactID string `json:"contact_id,omitempty"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Date      string `json:"date"`
}

// summarize condenses the snapshot into what the model needs to know.
func summarize(snapshot store.Snapshot, now time.Time) summary {
	interactions := append([]imodel.Interaction(nil), snapshot.Interactions...)
	sort.SliceStable(interactions, func(i, j int) bool {
		return deref(interactions[i].OccurredAt).After(deref(interactions[j].OccurredAt))
	})
	byContact := make(map[string][]imodel.Interaction)
	for _, i := range interactions {
		if i.ContactID != nil {
			byContact[*i.ContactID] = append(byContact[*i.ContactID], i)
		}
	}

	s := summary{
		Today:             now.Format(dateLayout),
		Contacts:          make([]contactSummary, 0, len(snapshot.Contacts)),
		UpcomingReminders: []reminderSummary{},
	}
	s.Totals.Contacts = len(snapshot.Contacts)
	s.Totals.Interactions = len(snapshot.Interactions)

	for _, c := range snapshot.Contacts {
		history := byContact[c.ID]
		cs := contactSummary{
			ID:                 c.ID,
			Name:               value(c.Name),
			Category:           value(c.Category),
			InteractionCount:   len(history),
			RecentInteractions: []interactionSummary{},
		}
		if c.Birthday != nil {
			cs.Birthday = c.Birthday.Format(dateLayout)
		}
		if len(history) > 0 && history[0].OccurredAt != nil {
			last := *history[0].OccurredAt
			days := int(now.Sub(last).Hours() / 24)
			cs.LastInteraction = last.Format(dateLayout)
			cs.DaysSinceLastInteraction = &days
		}
		for idx, i := range history {
			if idx == recentInteractionsPerContact {
				break
			}
			cs.RecentInteractions = append(cs.RecentInteractions, interactionSummary{
				Type:  value(i.Type),
				Date:  deref(i.OccurredAt).Format(dateLayout),
				Notes: value(i.Notes),
			})
		}
		s.Contacts = append(s.Contacts, cs)
	}

	reminders := append([]imodel.Reminder(nil), snapshot.Reminders...)
	sort.SliceStable(reminders, func(i, j int) bool {
		return deref(reminders[i].ReminderDate).Before(deref(reminders[j].ReminderDate))
	})
	for _, r := range reminders {
		if value(r.Status) != imodel.StatusActive {
			continue
		}
		s.Totals.ActiveReminders++
		if r.ReminderDate == nil || r.ReminderDate.Before(now) || len(s.UpcomingReminders) == upcomingReminderLimit {
			continue
		}
		s.UpcomingReminders = append(s.UpcomingReminders, reminderSummary{
			ContactID: value(r.ContactID),
			Type:      value(r.Type),
			Message:   value(r.Message),
			Date:      r.ReminderDate.Format(dateLayout),
		})
	}
	return s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
