package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/config"
	"gitlab.com/dirk.krummacker/relationship-service/internal/logx"
	"gitlab.com/dirk.krummacker/relationship-service/internal/model"
	"gitlab.com/dirk.krummacker/relationship-service/internal/store"
)

// Usage example on the command line:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go -file=../../scripts/database.sql
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go -file=../../scripts/database.sql -seed-user=9b2f6a86-2c55-4d84-9d0b-6a3f7f0f6d11
func main() {
	filePtr := flag.String("file", "database.sql", "the sql file to execute")
	seedUserPtr := flag.String("seed-user", "", "insert demo contacts for this user id")
	logx.Init(logx.Config{PrettyFormat: true})
	dbCfg := config.MustNew[store.Config]("")

	sqlDB, err := store.Open(*dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open database")
	}
	db := sqlx.NewDb(sqlDB, "mysql")
	defer db.Close()

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		log.Fatal().Err(err).Msg("could not open sql file")
	}
	defer readFile.Close()

	count, err := executeScript(db, readFile)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Int("statements", count).Str("file", *filePtr).Msg("migration done")

	if *seedUserPtr != "" {
		st, err := store.New(sqlDB)
		if err != nil {
			log.Fatal().Err(err).Msg("could not prepare statements")
		}
		created, err := populateDatabase(context.Background(), st, *seedUserPtr, time.Now().UTC())
		if err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
		log.Info().Int("contacts", created).Str("user_id", *seedUserPtr).Msg("demo data inserted")
	}
}

// executeScript runs the statements of the script one after the other. A statement ends on the
// line that contains a ';'. Lines starting with "--" are skipped.
func executeScript(db *sqlx.DB, script io.Reader) (int, error) {
	fileScanner := bufio.NewScanner(script)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	count := 0
	for fileScanner.Scan() {
		line := fileScanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			sql := builder.String()
			if _, err := db.Exec(sql); err != nil {
				return count, fmt.Errorf("statement %d: %w", count+1, err)
			}
			count++
			builder = strings.Builder{}
		}
	}
	return count, fileScanner.Err()
}

type demoContact struct {
	contact     model.Contact
	interaction *model.Interaction
	reminder    *model.Reminder
}

func ptr[T any](v T) *T {
	return &v
}

// populateDatabase enters demo data for the user. Contacts whose name is already present are not
// added again. It returns the number of contacts created.
func populateDatabase(ctx context.Context, st *store.Store, userID string, now time.Time) (int, error) {
	demo := []demoContact{
		{
			contact: model.Contact{
				Name:     ptr("Dirk Krummacker"),
				Phone:    ptr("+420 123 456 789"),
				Category: ptr("family"),
				Birthday: ptr(time.Date(1974, time.November, 29, 0, 0, 0, 0, time.UTC)),
			},
			interaction: &model.Interaction{
				Type:       ptr("call"),
				OccurredAt: ptr(now.AddDate(0, 0, -45)),
				Notes:      ptr("talked about the summer holidays"),
			},
		},
		{
			contact: model.Contact{
				Name:     ptr("Pavla Krummackerova"),
				Phone:    ptr("+420 023 454 244"),
				Category: ptr("family"),
				Birthday: ptr(time.Date(1980, time.January, 27, 0, 0, 0, 0, time.UTC)),
			},
		},
		{
			contact: model.Contact{
				Name:     ptr("Erika Mustermann"),
				Email:    ptr("erika@example.com"),
				Category: ptr("colleague"),
				Notes:    ptr("met at the conference in Brno"),
			},
			interaction: &model.Interaction{
				Type:            ptr("meeting"),
				OccurredAt:      ptr(now.AddDate(0, 0, -7)),
				Location:        ptr("Café Slavia"),
				DurationMinutes: ptr(60),
			},
			reminder: &model.Reminder{
				Type:         ptr("follow_up"),
				Message:      ptr("Send Erika the slides"),
				ReminderDate: ptr(now.AddDate(0, 0, 3)),
			},
		},
	}

	created := 0
	for _, d := range demo {
		existing, err := st.ListContacts(ctx, userID, store.ContactFilter{Name: *d.contact.Name})
		if err != nil {
			return created, err
		}
		if containsName(existing, *d.contact.Name) {
			continue
		}
		contact, err := st.CreateContact(ctx, userID, d.contact)
		if err != nil {
			return created, err
		}
		created++
		if d.interaction != nil {
			d.interaction.ContactID = &contact.ID
			if _, err := st.CreateInteraction(ctx, userID, *d.interaction); err != nil {
				return created, err
			}
		}
		if d.reminder != nil {
			d.reminder.ContactID = &contact.ID
			if _, err := st.CreateReminder(ctx, userID, *d.reminder); err != nil {
				return created, err
			}
		}
	}
	return created, nil
}

func containsName(contacts []model.Contact, name string) bool {
	for _, c := range contacts {
		if c.Name != nil && *c.Name == name {
			return true
		}
	}
	return false
}
