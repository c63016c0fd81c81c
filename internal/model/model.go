package model

import "time"

// Contact is the data structure for a person that the user knows.
// All fields with the exception of the bookkeeping fields are optional in updates. Name is
// required on creation.
type Contact struct {
	ID        string     `json:"id"                 db:"id"`
	UserID    string     `json:"user_id"            db:"user_id"`
	Name      *string    `json:"name,omitempty"     db:"name"     binding:"omitempty,min=1,max=255"`
	Email     *string    `json:"email,omitempty"    db:"email"    binding:"omitempty,email,max=255"`
	Phone     *string    `json:"phone,omitempty"    db:"phone"    binding:"omitempty,max=64"`
	Category  *string    `json:"category,omitempty" db:"category" binding:"omitempty,oneof=family friend colleague business acquaintance other"`
	Birthday  *time.Time `json:"birthday,omitempty" db:"birthday"`
	Notes     *string    `json:"notes,omitempty"    db:"notes"`
	CreatedAt time.Time  `json:"created_at"         db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"         db:"updated_at"`
}

// Interaction is an event (a call, a meeting, ...) with exactly one contact.
type Interaction struct {
	ID              string     `json:"id"                         db:"id"`
	UserID          string     `json:"user_id"                    db:"user_id"`
	ContactID       *string    `json:"contact_id,omitempty"       db:"contact_id"       binding:"omitempty,uuid"`
	Type            *string    `json:"type,omitempty"             db:"type"             binding:"omitempty,oneof=call meeting email text other"`
	OccurredAt      *time.Time `json:"occurred_at,omitempty"      db:"occurred_at"`
	Location        *string    `json:"location,omitempty"         db:"location"         binding:"omitempty,max=255"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" db:"duration_minutes" binding:"omitempty,min=0"`
	Notes           *string    `json:"notes,omitempty"            db:"notes"`
	CreatedAt       time.Time  `json:"created_at"                 db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"                 db:"updated_at"`
}

// Reminder is a future-dated prompt, optionally about one contact.
type Reminder struct {
	ID           string     `json:"id"                      db:"id"`
	UserID       string     `json:"user_id"                 db:"user_id"`
	ContactID    *string    `json:"contact_id,omitempty"    db:"contact_id"    binding:"omitempty,uuid"`
	Type         *string    `json:"type,omitempty"          db:"type"          binding:"omitempty,oneof=birthday follow_up custom anniversary"`
	Message      *string    `json:"message,omitempty"       db:"message"       binding:"omitempty,min=1"`
	ReminderDate *time.Time `json:"reminder_date,omitempty" db:"reminder_date"`
	Status       *string    `json:"status,omitempty"        db:"status"        binding:"omitempty,oneof=active dismissed completed"`
	CreatedAt    time.Time  `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"              db:"updated_at"`
}

// Reminder status values.
const (
	StatusActive    = "active"
	StatusDismissed = "dismissed"
	StatusCompleted = "completed"
)
