package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	lmstfy "github.com/lmstfy/lmstfy-go"
	"github.com/spf13/cobra"
)

// jobView is the printed form of a job. Data is shown as text when it is
// valid UTF-8 and as base64 otherwise.
type jobView struct {
	JobID       string `json:"job_id"`
	Namespace   string `json:"namespace"`
	Queue       string `json:"queue"`
	Data        string `json:"data,omitempty"`
	DataBase64  []byte `json:"data_base64,omitempty"`
	TTL         int64  `json:"ttl"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	RemainTries int64  `json:"remain_tries"`
}

func printJob(w io.Writer, job *lmstfy.Job) error {
	v := jobView{
		JobID:       job.ID,
		Namespace:   job.Namespace,
		Queue:       job.Queue,
		TTL:         job.TTL,
		ElapsedMS:   job.ElapsedMS,
		RemainTries: job.RemainTries,
	}
	if utf8.Valid(job.Data) {
		v.Data = string(job.Data)
	} else {
		v.DataBase64 = job.Data
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newPublishCommand constructs the `publish` subcommand.
func newPublishCommand(a *app) *cobra.Command {
	var ttl, tries, delay int
	cmd := &cobra.Command{
		Use:   "publish <queue> [data]",
		Short: "Publish a job; data is read from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) == 2 {
				data = []byte(args[1])
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				data = b
			}
			id, err := a.client.Publish(cmd.Context(), args[0], data, ttl, tries, delay)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().IntVar(&ttl, "ttl", 0, "Job time to live in seconds (0 = never expires)")
	cmd.Flags().IntVar(&tries, "tries", 1, "Delivery attempts before the job is dead-lettered")
	cmd.Flags().IntVar(&delay, "delay", 0, "Seconds before the job becomes ready")
	return cmd
}

// newConsumeCommand constructs the `consume` subcommand. Several queues
// are consumed with strict priority in the order given.
func newConsumeCommand(a *app) *cobra.Command {
	var ttr, timeout int
	var ack bool
	cmd := &cobra.Command{
		Use:   "consume <queue> [queue...]",
		Short: "Reserve the next ready job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				job *lmstfy.Job
				err error
			)
			if len(args) == 1 {
				job, err = a.client.Consume(cmd.Context(), args[0], ttr, timeout)
			} else {
				job, err = a.client.ConsumeMultiQueues(cmd.Context(), ttr, timeout, args...)
			}
			if err != nil {
				return err
			}
			if job == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no job available")
				return nil
			}
			if err := printJob(cmd.OutOrStdout(), job); err != nil {
				return err
			}
			if ack {
				if job.Queue == "" {
					return fmt.Errorf("job %s was returned without a queue name, so it cannot be acked here; run `lmstfy ack <queue> %s` once the queue is known", job.ID, job.ID)
				}
				return a.client.Ack(cmd.Context(), job.Queue, job.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&ttr, "ttr", 30, "Seconds the job stays reserved before redelivery")
	cmd.Flags().IntVar(&timeout, "timeout", 10, "Seconds to wait for a job (0 = wait indefinitely)")
	cmd.Flags().BoolVar(&ack, "ack", false, "Ack the job right after printing it")
	return cmd
}

// newAckCommand constructs the `ack` subcommand.
func newAckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <queue> <job-id>",
		Short: "Acknowledge (delete) a reserved job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Ack(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "acked", args[1])
			return nil
		},
	}
}

// newGetCommand constructs the `get` subcommand.
func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <queue> <job-id>",
		Short: "Show a job without reserving it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.client.GetJob(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), job)
		},
	}
}
