package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the journaled writes of this session, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			out := cmd.OutOrStdout()

			entries, err := app.Services.Dashboard.History(cmd.Context(), app.SessionID, limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			if len(entries) == 0 {
				printInfo(out, "No writes recorded yet")
				return nil
			}

			failed := color.New(color.FgRed)
			for _, e := range entries {
				line := fmt.Sprintf("%s  %-24s %-10s %s",
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.EventType, e.Outcome, e.LetterNo)
				if e.Detail != "" {
					line += "  " + truncate(e.Detail, maxCellWidth)
				}
				line = strings.TrimRight(line, " ")
				if e.Failed() {
					failed.Fprintln(out, line)
					continue
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}
