package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
	"github.com/adverant/nexus/electoralroll-worker/internal/processor"
	"github.com/adverant/nexus/electoralroll-worker/internal/queue"
)

var (
	enqueueDir       string
	enqueueNaming    string
	enqueueAC        int
	enqueueStartPart int
	enqueueEndPart   int
	enqueueKind      string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue cover or table jobs for the worker",
	RunE:  runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueDir, "dir", ".", "directory holding the part files, as seen by the worker")
	enqueueCmd.Flags().StringVar(&enqueueNaming, "filename", "", "file name prefix before No_ (required)")
	enqueueCmd.Flags().IntVar(&enqueueAC, "ac", 0, "assembly constituency number (required)")
	enqueueCmd.Flags().IntVar(&enqueueStartPart, "startpart", 0, "first part to queue")
	enqueueCmd.Flags().IntVar(&enqueueEndPart, "endpart", extraction.MaxParts, "last part to queue")
	enqueueCmd.Flags().StringVar(&enqueueKind, "kind", processor.KindCover, "job kind: cover or tables")
	enqueueCmd.MarkFlagRequired("filename")
	enqueueCmd.MarkFlagRequired("ac")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	matcher, err := extraction.NewRollFileMatcher(enqueueNaming, enqueueAC, enqueueStartPart, enqueueEndPart)
	if err != nil {
		return err
	}
	files, err := scanRollFiles(enqueueDir, matcher)
	if err != nil {
		return err
	}

	enq, err := queue.NewEnqueuer(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return err
	}
	defer enq.Close()

	for _, f := range files {
		job := rollJob(f, enqueueKind, enqueueAC)
		info, err := enq.Enqueue(ctx, job)
		if err != nil {
			return err
		}
		log.Info("Queued job", "jobId", job.JobID, "task", info.Type, "part", f.Part)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %d %s jobs on %s\n", len(files), enqueueKind, cfg.QueueName)
	return nil
}

func rollJob(f rollFile, kind string, ac int) *queue.JobPayload {
	return &queue.JobPayload{
		Kind:     kind,
		FilePath: f.Path,
		FileName: f.Name,
		AC:       ac,
	}
}
