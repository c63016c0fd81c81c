package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type benchContact struct {
	ID       string  `json:"id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Category *string `json:"category,omitempty"`
	Birthday *string `json:"birthday,omitempty"`
}

func newBenchCmd() *cobra.Command {
	var sizes []int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure the latency of the contact endpoints",
		Long: `Creates, updates, reads and deletes the given number of contacts and prints the
average duration of each request in microseconds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := newAPIClient(baseURL, token)
			return runBenchmark(cmd.Context(), api, sizes, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{100, 500, 1000, 5000}, "number of contacts per round")
	return cmd
}

func runBenchmark(ctx context.Context, api *apiClient, sizes []int, out io.Writer) error {
	name, phone, category, birthday := "Marcus Antonius", "+39 999 777 555", "friend", "0083-01-14T00:00:00Z"
	contact := benchContact{Name: &name, Phone: &phone, Category: &category, Birthday: &birthday}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Elements      POST       PUT       GET    DELETE ")
	fmt.Fprintln(out, "---------------------------------------------------")
	for _, loops := range sizes {
		if loops <= 0 {
			continue
		}
		fmt.Fprintf(out, "%10d", loops)

		// POST requests
		ids := make([]string, 0, loops)
		var duration time.Duration
		for i := 0; i < loops; i++ {
			id, d, err := createContact(ctx, api, contact)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			duration += d
		}
		fmt.Fprintf(out, "%10d", duration.Microseconds()/int64(loops))

		for _, method := range []string{http.MethodPut, http.MethodGet, http.MethodDelete} {
			var body interface{}
			if method == http.MethodPut {
				body = contact
			}
			d, err := callInLoop(ctx, api, method, ids, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%10d", d.Microseconds()/int64(loops))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func createContact(ctx context.Context, api *apiClient, contact benchContact) (string, time.Duration, error) {
	resBody, status, d, err := api.send(ctx, http.MethodPost, "/api/contacts", contact)
	if err != nil {
		return "", 0, err
	}
	if status != http.StatusCreated {
		return "", 0, fmt.Errorf("POST /api/contacts answered %d", status)
	}
	var created benchContact
	if err := json.Unmarshal(resBody, &created); err != nil {
		return "", 0, fmt.Errorf("could not unmarshal JSON: %w", err)
	}
	return created.ID, d, nil
}

// callInLoop sends one request per id, in random order, and sums up the durations.
func callInLoop(ctx context.Context, api *apiClient, method string, ids []string, body interface{}) (time.Duration, error) {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var duration time.Duration
	for _, id := range shuffled {
		_, status, d, err := api.send(ctx, method, "/api/contacts/"+id, body)
		if err != nil {
			return 0, err
		}
		if status >= http.StatusBadRequest {
			return 0, fmt.Errorf("%s /api/contacts/%s answered %d", method, id, status)
		}
		duration += d
	}
	return duration, nil
}
