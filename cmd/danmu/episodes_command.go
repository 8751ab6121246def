package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"danmu/internal/api"
	"danmu/internal/engine"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes <keyword> <animeId>",
		Short: "List episodes of a search result",
		Long: "List episodes of an entry returned by search. Entry ids live in the in-process catalog, " +
			"so the keyword is searched first (answered from cache when warm).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid anime id %q", args[1])
			}
			return ctx.withEngine(func(eng *engine.Engine) error {
				if _, err := eng.Search(cmd.Context(), args[0]); err != nil {
					return err
				}
				entry, err := eng.Episodes(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.BangumiResponse{
						Envelope: api.Envelope{Success: true},
						Bangumi:  api.FromEntry(entry, true),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", entry.Title, entry.Source)
				rows := make([][]string, 0, len(entry.Episodes))
				for i, link := range entry.Episodes {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						link.DisplayName,
						link.Label,
						link.Locator,
					})
				}
				fmt.Fprintln(out, renderRows(
					out,
					[]string{"#", "Episode", "Label", "Locator"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
