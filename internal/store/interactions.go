package store

import (
	"context"

	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
)

const interactionColumns = "id, user_id, contact_id, type, occurred_at, location, duration_minutes, notes, created_at, updated_at"

// InteractionFilter narrows down and pages an interaction list.
type InteractionFilter struct {
	ContactID string
	Type      string
	Limit     int
	Offset    int
}

// ListInteractions returns the user's interactions, newest first.
func (s *Store) ListInteractions(ctx context.Context, userID string, f InteractionFilter) ([]model.Interaction, error) {
	query := "SELECT " + interactionColumns + " FROM interactions WHERE user_id = ?"
	args := []interface{}{userID}
	if f.ContactID != "" {
		query += " AND contact_id = ?"
		args = append(args, f.ContactID)
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	limit, offset := page(f.Limit, f.Offset)
	query += " ORDER BY occurred_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	interactions := []model.Interaction{}
	if err := s.db.SelectContext(ctx, &interactions, query, args...); err != nil {
		return nil, err
	}
	return interactions, nil
}

// CreateInteraction logs a new interaction. The contact must belong to the user, otherwise
// ErrUnknownContact is returned and nothing is stored. A missing occurred_at means "now".
func (s *Store) CreateInteraction(ctx context.Context, userID string, i model.Interaction) (model.Interaction, error) {
	now := s.now()
	i.ID = s.newID()
	i.UserID = userID
	i.CreatedAt = now
	i.UpdatedAt = now
	if i.OccurredAt == nil {
		i.OccurredAt = &now
	}
	result, err := s.insertInteraction.ExecContext(ctx, &i)
	if err != nil {
		return model.Interaction{}, translate(err)
	}
	if err := insertedWithContact(result); err != nil {
		return model.Interaction{}, err
	}
	return i, nil
}

// GetInteraction returns the interaction with the id if it belongs to the user.
func (s *Store) GetInteraction(ctx context.Context, userID string, id string) (model.Interaction, error) {
	var i model.Interaction
	if err := getOne(ctx, s.selectInteraction, &i, userID, id); err != nil {
		return model.Interaction{}, err
	}
	return i, nil
}

// UpdateInteraction changes type, time, location, duration and notes where set. The contact of
// an interaction cannot be changed.
func (s *Store) UpdateInteraction(ctx context.Context, userID string, id string, changes model.Interaction) (model.Interaction, error) {
	var assignments []assignment
	if changes.Type != nil {
		assignments = append(assignments, assignment{"type", changes.Type})
	}
	if changes.OccurredAt != nil {
		assignments = append(assignments, assignment{"occurred_at", changes.OccurredAt})
	}
	if changes.Location != nil {
		assignments = append(assignments, assignment{"location", changes.Location})
	}
	if changes.DurationMinutes != nil {
		assignments = append(assignments, assignment{"duration_minutes", changes.DurationMinutes})
	}
	if changes.Notes != nil {
		assignments = append(assignments, assignment{"notes", changes.Notes})
	}
	if err := s.update(ctx, "interactions", userID, id, assignments); err != nil {
		return model.Interaction{}, err
	}
	return s.GetInteraction(ctx, userID, id)
}

// DeleteInteraction removes the interaction.
func (s *Store) DeleteInteraction(ctx context.Context, userID string, id string) error {
	return remove(ctx, s.deleteInteraction, userID, id)
}
