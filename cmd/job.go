package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/usecase/lifecycle"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Post and manage jobs",
}

var jobPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Post a new job as a homeowner",
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		ctx := cmd.Context()

		user, err := requiredFlag(cmd, "user")
		if err != nil {
			return err
		}
		category, _ := cmd.Flags().GetString("category")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		urgency, _ := cmd.Flags().GetString("urgency")
		zip, _ := cmd.Flags().GetString("zip")
		address, _ := cmd.Flags().GetString("address")
		priceMin, _ := cmd.Flags().GetInt64("price-min")
		priceMax, _ := cmd.Flags().GetInt64("price-max")

		job, err := svc.Lifecycle.PostJob(ctx, lifecycle.PostJobInput{
			HomeownerID:   user,
			Category:      category,
			Title:         title,
			Description:   description,
			Urgency:       urgency,
			Zip:           zip,
			Address:       address,
			PriceMinCents: priceMin,
			PriceMaxCents: priceMax,
		})
		if err != nil {
			logging.Error(ctx, "post job failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "post job")
		}

		return render(cmd, job, func(w io.Writer) error {
			return writeJob(w, job)
		})
	}),
}

var jobShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job with its quotes and matches",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		detail, err := svc.Board.Detail(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "load job")
		}
		return render(cmd, detail, func(w io.Writer) error {
			if err := writeJob(w, detail.Job); err != nil {
				return err
			}
			if err := rows(w, []string{""}, []string{"quote", "contractor", "amount", "status"}); err != nil {
				return err
			}
			for _, q := range detail.Quotes {
				if err := rows(w, []string{q.ID, q.ContractorID, pricing.FormatCents(q.AmountCents), string(q.Status)}); err != nil {
					return err
				}
			}
			if err := rows(w, []string{""}, []string{"slot", "contractor", "reason"}); err != nil {
				return err
			}
			for _, m := range detail.Matches {
				if err := rows(w, []string{fmt.Sprint(m.Slot), m.ContractorID, m.Reason}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		homeowner, _ := cmd.Flags().GetString("user")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := svc.Lifecycle.ListJobs(cmd.Context(), lifecycle.ListJobsInput{
			HomeownerID: homeowner,
			Status:      status,
			Limit:       limit,
		})
		if err != nil {
			return errs.Wrap(err, "list jobs")
		}
		return render(cmd, jobs, func(w io.Writer) error {
			if err := rows(w, []string{"id", "status", "category", "zip", "created", "title"}); err != nil {
				return err
			}
			for _, job := range jobs {
				if err := rows(w, []string{job.ID, string(job.Status), job.Category, job.Zip, job.CreatedAt.Format(time.RFC3339), job.Title}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var jobMatchCmd = &cobra.Command{
	Use:   "match <job-id>",
	Short: "Run contractor matching for a job now and wait for the result",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		report, err := svc.Matching.MatchJob(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			logging.Warn(cmd.Context(), "matching failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "match job")
		}
		return render(cmd, report, func(w io.Writer) error {
			if err := rows(w,
				[]string{"outcome", string(report.Outcome)},
				[]string{"reason", report.Reason},
				[]string{"candidates", fmt.Sprint(report.Candidates)},
				[]string{"emerging", report.EmergingID},
				[]string{""},
				[]string{"slot", "contractor", "reason"},
			); err != nil {
				return err
			}
			for _, m := range report.Matches {
				if err := rows(w, []string{fmt.Sprint(m.Slot), m.ContractorID, m.Reason}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var jobStartCmd = &cobra.Command{
	Use:   "start <job-id>",
	Short: "Start work on a matched job (accepted contractor only)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		input, err := jobActionInput(cmd)
		if err != nil {
			return err
		}
		job, err := svc.Lifecycle.StartJob(cmd.Context(), input)
		if err != nil {
			return errs.Wrap(err, "start job")
		}
		return render(cmd, job, func(w io.Writer) error { return writeJob(w, job) })
	}),
}

var jobCompleteCmd = &cobra.Command{
	Use:   "complete <job-id>",
	Short: "Mark a job completed and credit the contractor payout",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		input, err := jobActionInput(cmd)
		if err != nil {
			return err
		}
		result, err := svc.Lifecycle.CompleteJob(cmd.Context(), input)
		if err != nil {
			return errs.Wrap(err, "complete job")
		}
		return render(cmd, result, func(w io.Writer) error {
			if err := writeJob(w, result.Job); err != nil {
				return err
			}
			return rows(w, []string{"payout", pricing.FormatCents(result.PayoutCents) + " to " + result.ContractorID})
		})
	}),
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel an open or matched job (homeowner only)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		input, err := jobActionInput(cmd)
		if err != nil {
			return err
		}
		job, err := svc.Lifecycle.CancelJob(cmd.Context(), input)
		if err != nil {
			return errs.Wrap(err, "cancel job")
		}
		return render(cmd, job, func(w io.Writer) error { return writeJob(w, job) })
	}),
}

func jobActionInput(cmd *cobra.Command) (lifecycle.JobActionInput, error) {
	user, err := requiredFlag(cmd, "user")
	if err != nil {
		return lifecycle.JobActionInput{}, err
	}
	return lifecycle.JobActionInput{JobID: cmd.Flags().Arg(0), ActorUserID: user}, nil
}

func writeJob(w io.Writer, job marketplace.Job) error {
	budget := "-"
	if job.PriceMaxCents > 0 {
		budget = pricing.FormatCents(job.PriceMinCents) + " - " + pricing.FormatCents(job.PriceMaxCents)
	}
	return rows(w,
		[]string{"id", job.ID},
		[]string{"title", job.Title},
		[]string{"status", string(job.Status)},
		[]string{"category", job.Category},
		[]string{"urgency", string(job.Urgency)},
		[]string{"zip", job.Zip},
		[]string{"homeowner", job.HomeownerID},
		[]string{"budget", budget},
		[]string{"created", job.CreatedAt.Format(time.RFC3339)},
	)
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobPostCmd, jobShowCmd, jobListCmd, jobMatchCmd, jobStartCmd, jobCompleteCmd, jobCancelCmd)

	jobPostCmd.Flags().String("user", "", "Homeowner user id")
	jobPostCmd.Flags().String("category", "", "Service category, e.g. plumbing")
	jobPostCmd.Flags().String("title", "", "Job title (defaults to the category label)")
	jobPostCmd.Flags().String("description", "", "What needs doing")
	jobPostCmd.Flags().String("urgency", "flexible", "Urgency: asap|this_week|flexible")
	jobPostCmd.Flags().String("zip", "", "5-digit zip code")
	jobPostCmd.Flags().String("address", "", "Street address")
	jobPostCmd.Flags().Int64("price-min", 0, "Budget low end in cents")
	jobPostCmd.Flags().Int64("price-max", 0, "Budget high end in cents")

	jobListCmd.Flags().String("user", "", "Only jobs of this homeowner")
	jobListCmd.Flags().String("status", "", "Status filter (open|matched|active|completed|cancelled)")
	jobListCmd.Flags().Int("limit", 20, "Maximum rows")

	for _, c := range []*cobra.Command{jobStartCmd, jobCompleteCmd, jobCancelCmd} {
		c.Flags().String("user", "", "Acting user id")
	}
}
