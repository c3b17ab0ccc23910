package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heirloom-app/heirloom-go/internal/client"
)

var jobsWatch bool

var jobsCmd = &cobra.Command{
	Use:   "jobs <job-id>",
	Short: "Inspect an extraction job",
	Long: `Show the status of an extraction job.

Examples:
  heirloom jobs j8ck2mvu          # Show job status
  heirloom jobs j8ck2mvu --watch  # Poll until the job finishes
  heirloom jobs requeue j8ck2mvu  # Put a failed job back in the queue`,
	Args: cobra.ExactArgs(1),
	RunE: runJobs,
}

var jobsRequeueCmd = &cobra.Command{
	Use:   "requeue <job-id>",
	Short: "Put a failed job back in the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsRequeue,
}

func init() {
	jobsCmd.Flags().BoolVar(&jobsWatch, "watch", false, "poll until the job reaches a terminal status")
	jobsCmd.AddCommand(jobsRequeueCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	if jobsWatch {
		return RunJobWatch(apiClient, args[0])
	}

	job, err := apiClient.GetJob(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	printJob(job)
	return nil
}

func runJobsRequeue(cmd *cobra.Command, args []string) error {
	job, err := apiClient.RequeueJob(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	fmt.Printf("Job %s requeued (attempt %d so far)\n", job.ID, job.Attempt)
	return nil
}

func printJob(job *client.Job) {
	fmt.Printf("ID:      %s\n", job.ID)
	fmt.Printf("Type:    %s\n", job.JobType)
	fmt.Printf("Status:  %s\n", job.Status)
	fmt.Printf("Asset:   %s\n", job.MediaAssetID)
	fmt.Printf("Attempt: %d\n", job.Attempt)
	if job.StartedAt != nil {
		fmt.Printf("Started: %s\n", job.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if job.CompletedAt != nil {
		fmt.Printf("Ended:   %s\n", job.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if job.ErrorDetail != nil {
		fmt.Printf("Error:   %s\n", *job.ErrorDetail)
	}
}
