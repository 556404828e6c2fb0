package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knoguchi/editorialbot/internal/config"
	"github.com/knoguchi/editorialbot/internal/server"
	"github.com/knoguchi/editorialbot/internal/service"
	"github.com/spf13/cobra"
)

// Flags shared by ask and retrieve.
var (
	queryTopK    int
	queryRemote  string
	queryAPIKey  string
	queryToken   string
	queryJSON    bool
	queryTimeout time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the editorial corpus",
	Long: `Shortlists editorials for the question, asks the configured language
model and prints the answer with markdown links to the cited editorials.

With --remote the question is sent to a running server instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	addQueryFlags(askCmd)
	rootCmd.AddCommand(askCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "Number of editorials to shortlist (0 uses TOP_K)")
	cmd.Flags().StringVar(&queryRemote, "remote", "", "gRPC address of a running server (e.g. localhost:9090)")
	cmd.Flags().StringVar(&queryAPIKey, "api-key", os.Getenv("API_KEY"), "API key for --remote")
	cmd.Flags().StringVar(&queryToken, "token", "", "Reader JWT for --remote")
	cmd.Flags().BoolVar(&queryJSON, "json", false, "Print the result as JSON")
	cmd.Flags().DurationVar(&queryTimeout, "timeout", 2*time.Minute, "Request timeout")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
	defer cancel()

	var (
		ans *service.Answer
		err error
	)
	if queryRemote != "" {
		client, cerr := remoteClient()
		if cerr != nil {
			return cerr
		}
		defer client.Close()
		ans, err = client.Ask(ctx, question, queryTopK)
	} else {
		a, aerr := localApp(ctx, true)
		if aerr != nil {
			return aerr
		}
		defer a.Close()
		ans, err = a.qa.Ask(ctx, service.AskRequest{Question: question, TopK: queryTopK})
	}
	if err != nil {
		return err
	}

	if queryJSON {
		return writeJSON(cmd.OutOrStdout(), ans)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Fprintln(out)
		printSources(out, ans.Sources)
	}
	return nil
}

// localApp builds the pipeline in-process. Logs go to stderr so stdout holds
// only the result.
func localApp(ctx context.Context, answering bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, _ := setupLogger(os.Stderr, cfg.LogLevel, "")
	return newApp(ctx, cfg, logger, answering)
}

func remoteClient() (*server.Client, error) {
	var opts []server.ClientOption
	if queryAPIKey != "" {
		opts = append(opts, server.WithAPIKey(queryAPIKey))
	}
	if queryToken != "" {
		opts = append(opts, server.WithBearerToken(queryToken))
	}
	return server.NewClient(queryRemote, nil, opts...)
}

func printSources(w io.Writer, sources []service.Source) {
	fmt.Fprintln(w, "Sources:")
	for i, src := range sources {
		fmt.Fprintf(w, "  %d. %s", i+1, src.Title)
		if src.URL != "" {
			fmt.Fprintf(w, " <%s>", src.URL)
		}
		fmt.Fprintf(w, " (overlap %d)\n", src.Overlap)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
