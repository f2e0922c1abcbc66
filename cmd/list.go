package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hothouse/hothouse/internal/app"
	"github.com/hothouse/hothouse/internal/store"
)

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <job_id>",
		Short: "Print the job posting's candidate ranking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job_id %q", args[0])
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ranking, err := a.Store.Ranking(ctx, jobID)
				if err != nil {
					return err
				}
				if len(ranking) == 0 {
					cmd.Printf("no candidates for job %d\n", jobID)
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SCORE\tSTATUS\tCANDIDATE\tNAME\tNOTES")
				for _, member := range ranking {
					c, err := a.Store.GetCandidate(ctx, jobID, member.CandidateID)
					if err != nil {
						if errors.Is(err, store.ErrNotFound) {
							continue
						}
						return err
					}
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
						c.Score, c.Status, c.ID, c.Name, c.Notes)
				}
				return w.Flush()
			})
		},
	}
}
