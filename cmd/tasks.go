package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hothouse/hothouse/internal/app"
	"github.com/hothouse/hothouse/internal/queue"
)

func downloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "download <job_id> [candidate_id]",
		Short: "Enqueue application discovery for a job posting",
		Long: `Enqueues a download task: pages through the job posting's active
applications and seeds new candidates. With a candidate ID the run is
narrowed to that candidate and refreshes their record.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := &queue.Task{Kind: queue.KindDownload}
			if err := parseTaskArgs(task, args); err != nil {
				return err
			}
			return enqueueTask(cmd, task)
		},
	}
}

func rateCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "rate <job_id> [candidate_id]",
		Short: "Enqueue rating for a job posting or one candidate",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := &queue.Task{Kind: queue.KindRateJob, Refresh: refresh}
			if err := parseTaskArgs(task, args); err != nil {
				return err
			}
			if task.CandidateID != 0 {
				task.Kind = queue.KindRateCandidate
			}
			return enqueueTask(cmd, task)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-rate candidates that already have a score")
	return cmd
}

func parseTaskArgs(task *queue.Task, args []string) error {
	jobID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job_id %q", args[0])
	}
	task.JobID = jobID

	if len(args) > 1 {
		candidateID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid candidate_id %q", args[1])
		}
		task.CandidateID = candidateID
	}
	return nil
}

func enqueueTask(cmd *cobra.Command, task *queue.Task) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		id, err := a.Producer.Enqueue(ctx, task)
		if err != nil {
			return err
		}
		cmd.Printf("enqueued %s task %s for job %d\n", task.Kind, id, task.JobID)
		return nil
	})
}
