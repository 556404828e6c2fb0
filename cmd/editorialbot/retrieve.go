package main

import (
	"context"
	"strings"

	"github.com/knoguchi/editorialbot/internal/service"
	"github.com/spf13/cobra"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Print the editorials shortlisted for a question",
	Long: `Runs only the ranking step and prints the shortlisted editorials, best
first, without calling a language model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	addQueryFlags(retrieveCmd)
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
	defer cancel()

	var (
		sources []service.Source
		err     error
	)
	if queryRemote != "" {
		client, cerr := remoteClient()
		if cerr != nil {
			return cerr
		}
		defer client.Close()
		sources, err = client.Retrieve(ctx, question, queryTopK)
	} else {
		a, aerr := localApp(ctx, false)
		if aerr != nil {
			return aerr
		}
		defer a.Close()
		sources, err = a.qa.Retrieve(ctx, service.RetrieveRequest{Question: question, TopK: queryTopK})
	}
	if err != nil {
		return err
	}

	if queryJSON {
		return writeJSON(cmd.OutOrStdout(), sources)
	}
	printSources(cmd.OutOrStdout(), sources)
	return nil
}
