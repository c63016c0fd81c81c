// Package store is the data access layer for contacts, interactions and reminders. Every statement
// is scoped by the id of the user that owns the records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
)

var (
	// ErrNotFound is returned if no record with the given id exists for the user.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownContact is returned if a referenced contact does not exist for the user.
	ErrUnknownContact = errors.New("contact does not exist")
	// ErrNoChanges is returned by updates that carry no values.
	ErrNoChanges = errors.New("no values to be updated")
)

// maxInt is the largest possible int value
const maxInt = int(^uint(0) >> 1)

// mysqlForeignKeyViolation is the server error number for a failing foreign key constraint.
const mysqlForeignKeyViolation = 1452

// Config holds the connection parameters of the database.
type Config struct {
	Host     string `envconfig:"DBHOST" default:"localhost:3306"`
	User     string `envconfig:"DBUSER" required:"true"`
	Password string `envconfig:"DBPWD"`
	Name     string `envconfig:"DBNAME" default:"crm"`
}

// DSN builds the data source name for the MySQL driver. Times are parsed into UTC, and updates
// report matched rather than changed rows so that an unchanged row is not mistaken for a missing
// one.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Host
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}

// Open returns a handle to the database described by the configuration.
func Open(c Config) (*sql.DB, error) {
	return sql.Open("mysql", c.DSN())
}

// Store wraps the database and the prepared statements.
type Store struct {
	db    *sqlx.DB
	now   func() time.Time
	newID func() string

	insertContact *sqlx.NamedStmt
	selectContact *sqlx.Stmt
	deleteContact *sqlx.Stmt

	insertInteraction *sqlx.NamedStmt
	selectInteraction *sqlx.Stmt
	deleteInteraction *sqlx.Stmt

	insertReminder *sqlx.NamedStmt
	selectReminder *sqlx.Stmt
	deleteReminder *sqlx.Stmt
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the clock used for timestamps and for the "upcoming" reminder filter.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the generator for new record ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New wraps the specified sql database and prepares all statements. The database argument can
// be a real database for production use or a mock database within unit tests.
func New(sqlDB *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:    sqlx.NewDb(sqlDB, "mysql"),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	prepareNamed := func(query string) *sqlx.NamedStmt {
		if err != nil {
			return nil
		}
		var stmt *sqlx.NamedStmt
		stmt, err = s.db.PrepareNamed(query)
		return stmt
	}
	prepare := func(query string) *sqlx.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sqlx.Stmt
		stmt, err = s.db.Preparex(query)
		return stmt
	}

	s.insertContact = prepareNamed(`
		INSERT INTO contacts (` + contactColumns + `)
		VALUES (:id, :user_id, :name, :email, :phone, :category, :birthday, :notes, :created_at, :updated_at)
	`)
	s.selectContact = prepare(`
		SELECT ` + contactColumns + ` FROM contacts WHERE id = ? AND user_id = ?
	`)
	s.deleteContact = prepare(`
		DELETE FROM contacts WHERE id = ? AND user_id = ?
	`)

	// The insert only happens if the referenced contact belongs to the same user.
	s.insertInteraction = prepareNamed(`
		INSERT INTO interactions (` + interactionColumns + `)
		SELECT :id, :user_id, :contact_id, :type, :occurred_at, :location, :duration_minutes, :notes, :created_at, :updated_at
		FROM contacts WHERE id = :contact_id AND user_id = :user_id
	`)
	s.selectInteraction = prepare(`
		SELECT ` + interactionColumns + ` FROM interactions WHERE id = ? AND user_id = ?
	`)
	s.deleteInteraction = prepare(`
		DELETE FROM interactions WHERE id = ? AND user_id = ?
	`)

	// Reminders may be standalone. A referenced contact must belong to the same user.
	s.insertReminder = prepareNamed(`
		INSERT INTO reminders (` + reminderColumns + `)
		SELECT :id, :user_id, :contact_id, :type, :message, :reminder_date, :status, :created_at, :updated_at
		FROM DUAL
		WHERE :contact_id IS NULL OR EXISTS (SELECT 1 FROM contacts WHERE id = :contact_id AND user_id = :user_id)
	`)
	s.selectReminder = prepare(`
		SELECT ` + reminderColumns + ` FROM reminders WHERE id = ? AND user_id = ?
	`)
	s.deleteReminder = prepare(`
		DELETE FROM reminders WHERE id = ? AND user_id = ?
	`)

	if err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

// Ping verifies that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// assignment is one "column = ?" part of an UPDATE statement.
type assignment struct {
	column string
	value  interface{}
}

// update sets the given columns of the record with the id, plus updated_at. Only records of the
// user are touched.
func (s *Store) update(ctx context.Context, table string, userID string, id string, assignments []assignment) error {
	// It only makes sense to continue if we have at least one value to update.
	if len(assignments) == 0 {
		return ErrNoChanges
	}
	assignments = append(assignments, assignment{column: "updated_at", value: s.now()})

	parts := make([]string, 0, len(assignments))
	args := make([]interface{}, 0, len(assignments)+2)
	for _, a := range assignments {
		parts = append(parts, a.column+" = ?")
		args = append(args, a.value)
	}
	args = append(args, id, userID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND user_id = ?", table, strings.Join(parts, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	return expectOneRow(result)
}

// remove executes a prepared delete statement for the record with the id.
func remove(ctx context.Context, stmt *sqlx.Stmt, userID string, id string) error {
	result, err := stmt.ExecContext(ctx, id, userID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// expectOneRow turns a statement result without affected rows into ErrNotFound.
func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// insertedWithContact checks the result of an insert that is conditional on the referenced
// contact. No inserted row means the contact does not exist for the user.
func insertedWithContact(result sql.Result) error {
	err := expectOneRow(result)
	if errors.Is(err, ErrNotFound) {
		return ErrUnknownContact
	}
	return err
}

// getOne runs a prepared single-row select and maps the empty result to ErrNotFound.
func getOne(ctx context.Context, stmt *sqlx.Stmt, dest interface{}, userID string, id string) error {
	err := stmt.GetContext(ctx, dest, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// translate maps driver errors with a domain meaning onto the package's sentinel errors.
func translate(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrUnknownContact, mysqlErr.Message)
	}
	return err
}

// page returns limit and offset with defaults applied: no limit, no offset.
func page(limit int, offset int) (int, int) {
	if limit <= 0 {
		limit = maxInt
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Snapshot is everything that is stored for a single user.
type Snapshot struct {
	Contacts     []model.Contact
	Interactions []model.Interaction
	Reminders    []model.Reminder
}

// Snapshot loads all contacts, interactions and reminders of the user.
func (s *Store) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	var snapshot Snapshot
	var err error
	if snapshot.Contacts, err = s.ListContacts(ctx, userID, ContactFilter{OrderBy: "name"}); err != nil {
		return Snapshot{}, fmt.Errorf("load contacts: %w", err)
	}
	if snapshot.Interactions, err = s.ListInteractions(ctx, userID, InteractionFilter{}); err != nil {
		return Snapshot{}, fmt.Errorf("load interactions: %w", err)
	}
	if snapshot.Reminders, err = s.ListReminders(ctx, userID, ReminderFilter{}); err != nil {
		return Snapshot{}, fmt.Errorf("load reminders: %w", err)
	}
	return snapshot, nil
}
