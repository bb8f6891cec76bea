package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/usecase/lifecycle"
)

var contractorCmd = &cobra.Command{
	Use:   "contractor",
	Short: "Register contractors and inspect their feed and earnings",
}

var contractorRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a contractor profile for a user",
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		user, err := requiredFlag(cmd, "user")
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		bio, _ := cmd.Flags().GetString("bio")
		primary, _ := cmd.Flags().GetString("primary-trade")
		trades, _ := cmd.Flags().GetStringSlice("trade")
		zips, _ := cmd.Flags().GetStringSlice("zip")

		c, err := svc.Lifecycle.RegisterContractor(cmd.Context(), lifecycle.RegisterContractorInput{
			UserID:       user,
			FullName:     name,
			Bio:          bio,
			PrimaryTrade: primary,
			TradeTypes:   trades,
			ServiceZips:  zips,
		})
		if err != nil {
			return errs.Wrap(err, "register contractor")
		}
		return render(cmd, c, func(w io.Writer) error { return writeContractor(w, c) })
	}),
}

var contractorVerifyCmd = &cobra.Command{
	Use:   "verify <contractor-id>",
	Short: "Set a contractor's verification status",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		status, _ := cmd.Flags().GetString("status")
		c, err := svc.Lifecycle.SetVerification(cmd.Context(), cmd.Flags().Arg(0), status)
		if err != nil {
			return errs.Wrap(err, "set verification")
		}
		return render(cmd, c, func(w io.Writer) error { return writeContractor(w, c) })
	}),
}

var contractorShowCmd = &cobra.Command{
	Use:   "show <contractor-id>",
	Short: "Show a contractor profile",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		c, err := svc.Lifecycle.GetContractor(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "load contractor")
		}
		return render(cmd, c, func(w io.Writer) error { return writeContractor(w, c) })
	}),
}

var contractorFeedCmd = &cobra.Command{
	Use:   "feed <contractor-id>",
	Short: "List open jobs for a contractor, matched jobs first",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		items, err := svc.Lifecycle.ContractorFeed(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "load feed")
		}
		return render(cmd, items, func(w io.Writer) error {
			if err := rows(w, []string{"job", "category", "zip", "match", "quoted", "title"}); err != nil {
				return err
			}
			for _, item := range items {
				match := "-"
				if item.MatchedForYou {
					match = fmt.Sprintf("#%d %s", item.MatchSlot, item.MatchReason)
				}
				if err := rows(w, []string{item.Job.ID, item.Job.Category, item.Job.Zip, match, fmt.Sprint(item.AlreadyQuoted), item.Job.Title}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var contractorEarningsCmd = &cobra.Command{
	Use:   "earnings <contractor-id>",
	Short: "Show month-to-date and all-time earnings",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		e, err := svc.Lifecycle.Earnings(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "load earnings")
		}
		return render(cmd, e, func(w io.Writer) error {
			return rows(w,
				[]string{"contractor", e.ContractorID},
				[]string{"month", e.MonthStart.Format("2006-01")},
				[]string{"month to date", pricing.FormatCents(e.MonthToDateCents)},
				[]string{"accepted this month", fmt.Sprint(e.AcceptedThisMonth)},
				[]string{"all time", pricing.FormatCents(e.AllTimeCents)},
			)
		})
	}),
}

var contractorQuotesCmd = &cobra.Command{
	Use:   "quotes <contractor-id>",
	Short: "List the quotes a contractor has sent, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		quotes, err := svc.Lifecycle.ContractorQuotes(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "load contractor quotes")
		}
		return render(cmd, quotes, func(w io.Writer) error {
			if err := rows(w, []string{"quote", "status", "amount", "payout", "job", "job status", "title"}); err != nil {
				return err
			}
			for _, q := range quotes {
				if err := rows(w, []string{
					q.Quote.ID,
					string(q.Quote.Status),
					pricing.FormatCents(q.Quote.AmountCents),
					pricing.FormatCents(q.PayoutCents),
					q.Quote.JobID,
					string(q.JobStatus),
					q.JobTitle,
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var contractorActiveJobsCmd = &cobra.Command{
	Use:   "active-jobs <contractor-id>",
	Short: "List active jobs the contractor can mark completed",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		jobs, err := svc.Lifecycle.ContractorActiveJobs(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "load active jobs")
		}
		return render(cmd, jobs, func(w io.Writer) error {
			if err := rows(w, []string{"job", "category", "zip", "homeowner", "title"}); err != nil {
				return err
			}
			for _, job := range jobs {
				if err := rows(w, []string{job.ID, job.Category, job.Zip, job.HomeownerID, job.Title}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

func writeContractor(w io.Writer, c marketplace.Contractor) error {
	rating := "no reviews"
	if c.RatingAvg != nil {
		rating = fmt.Sprintf("%.2f (%d)", *c.RatingAvg, c.RatingCount)
	}
	return rows(w,
		[]string{"id", c.ID},
		[]string{"user", c.UserID},
		[]string{"name", c.FullName},
		[]string{"trades", strings.Join(c.TradeTypes, ",")},
		[]string{"zips", strings.Join(c.ServiceZips, ",")},
		[]string{"verification", string(c.Verification)},
		[]string{"rating", rating},
		[]string{"badges", joinBadges(marketplace.Badges(c))},
		[]string{"earnings", pricing.FormatCents(c.TotalEarningsCents)},
	)
}

func joinBadges(badges []marketplace.Badge) string {
	names := make([]string, 0, len(badges))
	for _, b := range badges {
		names = append(names, string(b))
	}
	return strings.Join(names, ",")
}

func init() {
	rootCmd.AddCommand(contractorCmd)
	contractorCmd.AddCommand(contractorRegisterCmd, contractorVerifyCmd, contractorShowCmd, contractorFeedCmd, contractorEarningsCmd, contractorQuotesCmd, contractorActiveJobsCmd)

	contractorRegisterCmd.Flags().String("user", "", "User id the profile belongs to")
	contractorRegisterCmd.Flags().String("name", "", "Full name")
	contractorRegisterCmd.Flags().String("bio", "", "Short bio")
	contractorRegisterCmd.Flags().String("primary-trade", "", "Primary trade, e.g. plumbing")
	contractorRegisterCmd.Flags().StringSlice("trade", nil, "Additional trades (repeatable)")
	contractorRegisterCmd.Flags().StringSlice("zip", nil, "Service zip codes, at most 5 (repeatable)")

	contractorVerifyCmd.Flags().String("status", string(marketplace.VerificationVerified), "pending|verified|rejected")
}
