package store

import (
	"context"

	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
)

const reminderColumns = "id, user_id, contact_id, type, message, reminder_date, status, created_at, updated_at"

// ReminderFilter narrows down and pages a reminder list.
type ReminderFilter struct {
	// Upcoming restricts the list to reminders that are due now or later and that are neither
	// dismissed nor completed.
	Upcoming  bool
	Status    string
	ContactID string
	Limit     int
	Offset    int
}

// ListReminders returns the user's reminders, soonest first.
func (s *Store) ListReminders(ctx context.Context, userID string, f ReminderFilter) ([]model.Reminder, error) {
	query := "SELECT " + reminderColumns + " FROM reminders WHERE user_id = ?"
	args := []interface{}{userID}
	if f.Upcoming {
		query += " AND reminder_date >= ? AND status NOT IN (?, ?)"
		args = append(args, s.now(), model.StatusDismissed, model.StatusCompleted)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.ContactID != "" {
		query += " AND contact_id = ?"
		args = append(args, f.ContactID)
	}
	limit, offset := page(f.Limit, f.Offset)
	query += " ORDER BY reminder_date ASC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	reminders := []model.Reminder{}
	if err := s.db.SelectContext(ctx, &reminders, query, args...); err != nil {
		return nil, err
	}
	return reminders, nil
}

// CreateReminder stores a new reminder. A set contact must belong to the user, otherwise
// ErrUnknownContact is returned and nothing is stored. A missing status means active.
func (s *Store) CreateReminder(ctx context.Context, userID string, r model.Reminder) (model.Reminder, error) {
	now := s.now()
	r.ID = s.newID()
	r.UserID = userID
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == nil {
		status := model.StatusActive
		r.Status = &status
	}
	result, err := s.insertReminder.ExecContext(ctx, &r)
	if err != nil {
		return model.Reminder{}, translate(err)
	}
	if err := insertedWithContact(result); err != nil {
		return model.Reminder{}, err
	}
	return r, nil
}

// GetReminder returns the reminder with the id if it belongs to the user.
func (s *Store) GetReminder(ctx context.Context, userID string, id string) (model.Reminder, error) {
	var r model.Reminder
	if err := getOne(ctx, s.selectReminder, &r, userID, id); err != nil {
		return model.Reminder{}, err
	}
	return r, nil
}

// UpdateReminder changes type, message, date and status where set.
func (s *Store) UpdateReminder(ctx context.Context, userID string, id string, changes model.Reminder) (model.Reminder, error) {
	var assignments []assignment
	if changes.Type != nil {
		assignments = append(assignments, assignment{"type", changes.Type})
	}
	if changes.Message != nil {
		assignments = append(assignments, assignment{"message", changes.Message})
	}
	if changes.ReminderDate != nil {
		assignments = append(assignments, assignment{"reminder_date", changes.ReminderDate})
	}
	if changes.Status != nil {
		assignments = append(assignments, assignment{"status", changes.Status})
	}
	if err := s.update(ctx, "reminders", userID, id, assignments); err != nil {
		return model.Reminder{}, err
	}
	return s.GetReminder(ctx, userID, id)
}

// DeleteReminder removes the reminder.
func (s *Store) DeleteReminder(ctx context.Context, userID string, id string) error {
	return remove(ctx, s.deleteReminder, userID, id)
}
