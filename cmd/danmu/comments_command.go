package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"danmu/internal/api"
	"danmu/internal/danmaku"
	"danmu/internal/engine"
)

func newCommentsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "comments <locator>",
		Short: "Fetch normalized comments for an episode locator",
		Long:  "Fetch comments for a locator such as \"dandan:1001$$$bilibili:2002\". Every part is fetched and the streams are merged.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				comments, err := eng.CommentsByLocator(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.CommentResponse{Count: len(comments), Comments: comments})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d comments\n", len(comments))
				shown := comments
				if limit > 0 && len(shown) > limit {
					shown = shown[:limit]
				}
				fmt.Fprintln(out, renderComments(out, shown))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Rows to print in table mode (0 prints all)")
	return cmd
}

func renderComments(out io.Writer, comments []danmaku.Comment) string {
	rows := make([][]string, 0, len(comments))
	for _, comment := range comments {
		rows = append(rows, []string{
			strconv.FormatFloat(comment.T, 'f', 2, 64),
			comment.P,
			comment.M,
		})
	}
	return renderRows(out, []string{"Time", "P", "Text"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft})
}
