package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/relationship-service/pkg/model"
)

var (
	baseURL string
	token   string
)

// Usage example on the command line:
// > go run . chat "Who did I not talk to for a while?" --token=$TOKEN
// > go run . insights --token=$TOKEN
// > go run . bench --sizes=100,1000 --token=$TOKEN
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "client",
		Short: "Command line client of the relationship service",
		Long: `Talks to a running relationship service.

Available subcommands:
  chat     - Send a message to the AI assistant
  insights - Show AI generated relationship insights
  bench    - Measure the latency of the contact endpoints`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", envOr("SERVICE_URL", "http://localhost:8080"), "base URL of the service")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("SERVICE_TOKEN"), "access token of the user")

	rootCmd.AddCommand(newChatCmd(), newInsightsCmd(), newBenchCmd())
	return rootCmd
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message to the AI assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := newAPIClient(baseURL, token)
			reply, err := api.chat(cmd.Context(), model.ChatRequest{Message: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, call := range reply.ToolCalls {
				fmt.Fprintf(out, "  [%s]\n", call.Name)
			}
			fmt.Fprintln(out, reply.Message)
			return nil
		},
	}
}

func newInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Show AI generated relationship insights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := newAPIClient(baseURL, token)
			res, err := api.insights(cmd.Context())
			if err != nil {
				return err
			}
			printInsights(cmd, res)
			return nil
		},
	}
}

func printInsights(cmd *cobra.Command, res model.InsightsResponse) {
	out := cmd.OutOrStdout()
	if len(res.Insights) == 0 {
		fmt.Fprintln(out, "No insights yet. Add some contacts first.")
		return
	}
	for i, in := range res.Insights {
		fmt.Fprintf(out, "%d. [%s] %s (%s)\n", i+1, strings.ToUpper(in.Priority), in.Title, in.Category)
		fmt.Fprintf(out, "   %s\n", in.Description)
		fmt.Fprintf(out, "   -> %s\n", in.SuggestedAction)
	}
}

func envOr(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
