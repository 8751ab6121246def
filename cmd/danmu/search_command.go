package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"danmu/internal/api"
	"danmu/internal/catalog"
	"danmu/internal/engine"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search every enabled provider and merge matching entries",
		Long:  "Search every enabled provider. A trailing year such as \"Title (2020)\" restricts results to that year.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			return ctx.withEngine(func(eng *engine.Engine) error {
				entries, err := eng.Search(cmd.Context(), keyword)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.SearchResponse{
						Envelope: api.Envelope{Success: true},
						Animes:   api.FromEntries(entries),
					})
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "No results for %q\n", keyword)
					return nil
				}
				fmt.Fprintln(out, renderEntries(out, entries))
				return nil
			})
		},
	}
}

func renderEntries(out io.Writer, entries []*catalog.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			entry.Title,
			entry.Source,
			entry.TypeDescription,
			formatDate(entry),
			strconv.Itoa(len(entry.Episodes)),
		})
	}
	return renderRows(
		out,
		[]string{"ID", "Title", "Source", "Type", "Start", "Episodes"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func formatDate(entry *catalog.Entry) string {
	if entry.StartDate.IsZero() {
		return "-"
	}
	return entry.StartDate.Format("2006-01-02")
}
