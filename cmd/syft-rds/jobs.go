package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/OpenMined/syft-rds/pkg/client"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Submit, review and run jobs",
}

var jobsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit code to run against a dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		codePath, _ := cmd.Flags().GetString("code")
		dataset, _ := cmd.Flags().GetString("dataset")
		entrypoint, _ := cmd.Flags().GetString("entrypoint")
		runtimeName, _ := cmd.Flags().GetString("runtime")
		name, _ := cmd.Flags().GetString("name")

		job, err := c.Jobs.Submit(context.Background(), client.SubmitJobParams{
			Name:         name,
			UserCodePath: codePath,
			Entrypoint:   entrypoint,
			DatasetName:  dataset,
			RuntimeName:  runtimeName,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Submitted job %s (%s)\n", job.Name, job.UID)
		return nil
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs on the host datasite",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		jobs, err := c.Jobs.GetAll(context.Background(), nil)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s  %-20s  %-20s  %s\n", "UID", "NAME", "STATUS", "DATASET")
		for _, j := range jobs {
			fmt.Printf("%-36s  %-20s  %-20s  %s\n", j.UID, j.Name, j.Status, j.DatasetName)
		}
		return nil
	},
}

var jobsApproveCmd = &cobra.Command{
	Use:   "approve <job-uid>",
	Short: "Approve a pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return jobStatusAction(args[0], func(c *client.Client, ctx context.Context, uid uuid.UUID) error {
			job, err := c.Jobs.Get(ctx, uid)
			if err != nil {
				return err
			}
			job, err = c.Jobs.Approve(ctx, job)
			if err != nil {
				return err
			}
			fmt.Printf("Job %s is now %s\n", job.UID, job.Status)
			return nil
		})
	},
}

var jobsRejectCmd = &cobra.Command{
	Use:   "reject <job-uid>",
	Short: "Reject a pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return jobStatusAction(args[0], func(c *client.Client, ctx context.Context, uid uuid.UUID) error {
			job, err := c.Jobs.Get(ctx, uid)
			if err != nil {
				return err
			}
			job, err = c.Jobs.Reject(ctx, job, reason)
			if err != nil {
				return err
			}
			fmt.Printf("Job %s is now %s\n", job.UID, job.Status)
			return nil
		})
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <job-uid>",
	Short: "Run an approved job against the private data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		timeout, _ := cmd.Flags().GetInt("timeout")
		return jobStatusAction(args[0], func(c *client.Client, ctx context.Context, uid uuid.UUID) error {
			job, err := c.Jobs.Get(ctx, uid)
			if err != nil {
				return err
			}
			job, _, err = c.Jobs.RunPrivate(ctx, job, client.RunConfig{
				Force:    force,
				Blocking: true,
				Timeout:  timeout,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Job %s finished with status %s\n", job.UID, job.Status)
			if job.ErrorMessage != "" {
				fmt.Printf("Error output:\n%s", job.ErrorMessage)
			}
			return nil
		})
	},
}

var jobsShareCmd = &cobra.Command{
	Use:   "share <job-uid>",
	Short: "Share a finished job's results with the submitter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return jobStatusAction(args[0], func(c *client.Client, ctx context.Context, uid uuid.UUID) error {
			job, err := c.Jobs.Get(ctx, uid)
			if err != nil {
				return err
			}
			job, err = c.Jobs.ShareResults(ctx, job)
			if err != nil {
				return err
			}
			fmt.Printf("Shared results at %s\n", job.OutputURL)
			return nil
		})
	},
}

var jobsLogsCmd = &cobra.Command{
	Use:   "logs <job-uid>",
	Short: "Print a job's run logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return jobStatusAction(args[0], func(c *client.Client, ctx context.Context, uid uuid.UUID) error {
			job, err := c.Jobs.Get(ctx, uid)
			if err != nil {
				return err
			}
			logs, err := c.Jobs.GetLogs(ctx, job)
			if err != nil {
				return err
			}
			for name, content := range logs {
				fmt.Printf("==> %s <==\n%s\n", name, content)
			}
			return nil
		})
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-uid>",
	Short: "Delete a job and its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orphaned, _ := cmd.Flags().GetBool("delete-orphaned-code")
		return jobStatusAction(args[0], func(c *client.Client, ctx context.Context, uid uuid.UUID) error {
			deleted, err := c.Jobs.Delete(ctx, uid, orphaned)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Printf("Job %s not found\n", uid)
				return nil
			}
			fmt.Printf("Deleted job %s\n", uid)
			return nil
		})
	},
}

// jobStatusAction parses the uid argument and runs fn with a client.
func jobStatusAction(arg string, fn func(*client.Client, context.Context, uuid.UUID) error) error {
	uid, err := uuid.Parse(arg)
	if err != nil {
		return fmt.Errorf("invalid job uid %q: %v", arg, err)
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	return fn(c, context.Background(), uid)
}

func init() {
	jobsSubmitCmd.Flags().String("code", "", "path to the script or project folder")
	jobsSubmitCmd.Flags().String("dataset", "", "target dataset name")
	jobsSubmitCmd.Flags().String("entrypoint", "", "entrypoint inside a project folder")
	jobsSubmitCmd.Flags().String("runtime", "", "registered runtime name")
	jobsSubmitCmd.Flags().String("name", "", "job name")
	jobsSubmitCmd.MarkFlagRequired("code")
	jobsSubmitCmd.MarkFlagRequired("dataset")

	jobsRejectCmd.Flags().String("reason", "", "rejection reason recorded on the job")
	jobsRunCmd.Flags().Bool("force", false, "run even when the job is still pending review")
	jobsRunCmd.Flags().Int("timeout", 0, "run timeout in seconds (0 for none)")
	jobsDeleteCmd.Flags().Bool("delete-orphaned-code", false, "also delete the code bundle if nothing else references it")

	jobsCmd.AddCommand(jobsSubmitCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsApproveCmd)
	jobsCmd.AddCommand(jobsRejectCmd)
	jobsCmd.AddCommand(jobsRunCmd)
	jobsCmd.AddCommand(jobsShareCmd)
	jobsCmd.AddCommand(jobsLogsCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
}
