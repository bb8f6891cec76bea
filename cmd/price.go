package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/usecase/estimate"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Catalogue prices, payouts and estimates",
}

var priceBreakdownCmd = &cobra.Command{
	Use:   "breakdown <category>",
	Short: "Customer price breakdown for a catalogue service",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		hours, _ := cmd.Flags().GetInt("hours")
		noFee, _ := cmd.Flags().GetBool("no-platform-fee")

		b, err := svc.Pricing.ComputeBreakdown(cmd.Flags().Arg(0), hours, !noFee)
		if err != nil {
			return errs.Wrap(err, "compute breakdown")
		}
		label, _ := svc.Pricing.QuoteLabel(b.Category, b.Hours)
		return render(cmd, b, func(w io.Writer) error {
			return rows(w,
				[]string{"service", label},
				[]string{"base", pricing.FormatCents(b.BasePrice)},
				[]string{"hourly", pricing.FormatCents(b.HourlyTotal)},
				[]string{"subtotal", pricing.FormatCents(b.Subtotal)},
				[]string{"platform fee", pricing.FormatCents(b.PlatformFee)},
				[]string{"tax", pricing.FormatCents(b.Tax)},
				[]string{"total", pricing.FormatCents(b.Total)},
				[]string{"provider nets", pricing.FormatCents(svc.Pricing.ProviderPayout(b.Subtotal))},
			)
		})
	}),
}

var pricePayoutCmd = &cobra.Command{
	Use:   "payout <amount-cents>",
	Short: "What a contractor keeps from a quote amount",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		var amount int64
		if _, err := fmt.Sscan(cmd.Flags().Arg(0), &amount); err != nil || amount < 0 || amount > marketplace.MaxQuoteAmountCents {
			return fmt.Errorf("amount must be an integer number of cents between 0 and %d: %q", marketplace.MaxQuoteAmountCents, cmd.Flags().Arg(0))
		}
		out := map[string]int64{
			"amount_cents": amount,
			"fee_cents":    svc.Pricing.ContractorFee(amount),
			"payout_cents": svc.Pricing.ContractorPayout(amount),
		}
		return render(cmd, out, func(w io.Writer) error {
			return rows(w,
				[]string{"amount", pricing.FormatCents(amount)},
				[]string{"fee", pricing.FormatCents(out["fee_cents"])},
				[]string{"payout", pricing.FormatCents(out["payout_cents"])},
			)
		})
	}),
}

var priceEstimateCmd = &cobra.Command{
	Use:   "estimate <category>",
	Short: "Estimate a price range for a job draft",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		description, _ := cmd.Flags().GetString("description")
		zip, _ := cmd.Flags().GetString("zip")
		urgency, _ := cmd.Flags().GetString("urgency")

		est, err := svc.Estimate.Estimate(cmd.Context(), estimate.Draft{
			Category:    cmd.Flags().Arg(0),
			Description: description,
			Zip:         zip,
			Urgency:     urgency,
		})
		if err != nil {
			return errs.Wrap(err, "estimate")
		}
		return render(cmd, est, func(w io.Writer) error {
			return rows(w,
				[]string{"range", pricing.FormatCents(est.MinCents) + " - " + pricing.FormatCents(est.MaxCents)},
				[]string{"basis", est.Basis},
				[]string{"source", est.Source},
				[]string{"cached", fmt.Sprint(est.Cached)},
			)
		})
	}),
}

func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.AddCommand(priceBreakdownCmd, pricePayoutCmd, priceEstimateCmd)

	priceBreakdownCmd.Flags().Int("hours", 1, "Billed hours")
	priceBreakdownCmd.Flags().Bool("no-platform-fee", false, "Leave out the platform fee")

	priceEstimateCmd.Flags().String("description", "", "Job description")
	priceEstimateCmd.Flags().String("zip", "", "5-digit zip code")
	priceEstimateCmd.Flags().String("urgency", "flexible", "asap|this_week|flexible")
}
