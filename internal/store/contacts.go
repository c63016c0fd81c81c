package store

import (
	"context"
	"fmt"

	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
)

const contactColumns = "id, user_id, name, email, phone, category, birthday, notes, created_at, updated_at"

// ContactOrderColumns are the columns a contact list can be sorted by.
var ContactOrderColumns = []string{"name", "email", "category", "birthday", "created_at", "updated_at"}

// ContactFilter narrows down and pages a contact list. Zero values mean "no restriction".
type ContactFilter struct {
	// Name is matched against the beginning of the contact's name.
	Name     string
	Category string
	// BirthMonth and BirthDay select contacts with their birthday on that day, regardless of the
	// year. Both must be set.
	BirthMonth int
	BirthDay   int
	Limit      int
	Offset     int
	// OrderBy is one of ContactOrderColumns, created_at if empty.
	OrderBy    string
	Descending bool
}

// ListContacts returns the user's contacts that match the filter.
func (s *Store) ListContacts(ctx context.Context, userID string, f ContactFilter) ([]model.Contact, error) {
	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	if !contains(ContactOrderColumns, orderBy) {
		return nil, fmt.Errorf("invalid order column %q", orderBy)
	}
	direction := "ASC"
	if f.Descending {
		direction = "DESC"
	}

	query := "SELECT " + contactColumns + " FROM contacts WHERE user_id = ?"
	args := []interface{}{userID}
	if f.Name != "" {
		query += " AND name LIKE ?"
		args = append(args, f.Name+"%")
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.BirthMonth != 0 && f.BirthDay != 0 {
		query += " AND MONTH(birthday) = ? AND DAY(birthday) = ?"
		args = append(args, f.BirthMonth, f.BirthDay)
	}
	limit, offset := page(f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY %s %s, id LIMIT ? OFFSET ?", orderBy, direction)
	args = append(args, limit, offset)

	contacts := []model.Contact{}
	if err := s.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, err
	}
	return contacts, nil
}

// CreateContact stores a new contact for the user. Id and timestamps are assigned here; the
// returned contact carries them.
func (s *Store) CreateContact(ctx context.Context, userID string, c model.Contact) (model.Contact, error) {
	now := s.now()
	c.ID = s.newID()
	c.UserID = userID
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.insertContact.ExecContext(ctx, &c); err != nil {
		return model.Contact{}, translate(err)
	}
	return c, nil
}

// GetContact returns the contact with the id if it belongs to the user.
func (s *Store) GetContact(ctx context.Context, userID string, id string) (model.Contact, error) {
	var c model.Contact
	if err := getOne(ctx, s.selectContact, &c, userID, id); err != nil {
		return model.Contact{}, err
	}
	return c, nil
}

// UpdateContact changes the values that are set in changes (and only those), then returns the
// new version of the contact.
func (s *Store) UpdateContact(ctx context.Context, userID string, id string, changes model.Contact) (model.Contact, error) {
	var assignments []assignment
	if changes.Name != nil {
		assignments = append(assignments, assignment{"name", changes.Name})
	}
	if changes.Email != nil {
		assignments = append(assignments, assignment{"email", changes.Email})
	}
	if changes.Phone != nil {
		assignments = append(assignments, assignment{"phone", changes.Phone})
	}
	if changes.Category != nil {
		assignments = append(assignments, assignment{"category", changes.Category})
	}
	if changes.Birthday != nil {
		assignments = append(assignments, assignment{"birthday", changes.Birthday})
	}
	if changes.Notes != nil {
		assignments = append(assignments, assignment{"notes", changes.Notes})
	}
	if err := s.update(ctx, "contacts", userID, id, assignments); err != nil {
		return model.Contact{}, err
	}
	return s.GetContact(ctx, userID, id)
}

// DeleteContact removes the contact. Its interactions go with it, its reminders stay without a
// contact.
func (s *Store) DeleteContact(ctx context.Context, userID string, id string) error {
	return remove(ctx, s.deleteContact, userID, id)
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}
