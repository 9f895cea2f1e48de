package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amonks/tkt/internal/state"
	"github.com/amonks/tkt/internal/ui"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List ticket workspaces",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	tickets, err := store.Tickets()
	if err != nil {
		return err
	}

	if listJSON {
		return encodeJSON(cmd.OutOrStdout(), tickets)
	}
	if len(tickets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no workspaces")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), formatTicketTable(tickets, time.Now()))
	return nil
}

func formatTicketTable(tickets []state.TicketInfo, now time.Time) string {
	builder := ui.NewTableBuilder([]string{"TICKET", "STATUS", "REPOSITORIES", "UPDATED", "PATH"}, len(tickets))
	for _, info := range tickets {
		repos := strings.Join(info.Repositories, ",")
		if repos == "" {
			repos = "-"
		}
		builder.AddRow(info.Ticket, ui.Status(string(info.Status)), repos, ui.FormatTimeAgo(info.UpdatedAt, now), info.Path)
	}
	return builder.String()
}

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
