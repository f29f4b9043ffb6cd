package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcmate/rcmate/internal/jobs"
)

func newJobsCommand() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:           "jobs",
		Short:         "Inspect and control backend jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List jobs known to the backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          jobsList,
	}

	statusCmd := &cobra.Command{
		Use:           "status <job-id>",
		Short:         "Show the status of one job",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          jobsStatus,
	}

	stopCmd := &cobra.Command{
		Use:           "stop <job-id>",
		Short:         "Stop a running job",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          jobsStop,
	}

	jobsCmd.AddCommand(listCmd, statusCmd, stopCmd)
	return jobsCmd
}

func jobsList(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	list, err := app.jobs.List(cmd.Context())
	if err != nil {
		return out.Error("Failed to list jobs", err)
	}

	if out.jsonMode {
		return out.Print(map[string]interface{}{"jobs": list})
	}

	if len(list) == 0 {
		fmt.Println("No jobs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSOURCE\tDEST\tSTATE")
	for _, j := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", j.ID, j.Kind, j.Source, j.Dest, jobState(j))
	}
	return w.Flush()
}

func jobState(j jobs.Job) string {
	if !j.Finished {
		return "running"
	}
	if j.Success {
		return "finished"
	}
	return "failed"
}

func jobsStatus(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return out.Error("Invalid job id", err)
	}

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	job, err := app.jobs.Status(cmd.Context(), id)
	if err != nil {
		return out.Error("Failed to fetch job status", err)
	}

	if out.jsonMode {
		return out.Print(job)
	}

	fmt.Printf("Job %d: %s\n", job.ID, jobState(*job))
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}
	if job.Duration > 0 {
		fmt.Printf("  Duration: %.1fs\n", job.Duration)
	}
	if job.Bytes > 0 {
		fmt.Printf("  Transferred: %s\n", formatBytes(job.Bytes))
	}
	if job.Speed > 0 {
		fmt.Printf("  Speed: %s/s\n", formatBytes(int64(job.Speed)))
	}
	return nil
}

func jobsStop(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return out.Error("Invalid job id", err)
	}

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	if err := app.jobs.Stop(cmd.Context(), id); err != nil {
		return out.Error("Failed to stop job", err)
	}
	return out.Success(fmt.Sprintf("Job %d stopped", id), map[string]interface{}{
		"job_id": id,
	})
}
