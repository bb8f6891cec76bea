package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/usecase/ratinggate"
)

var ratingCmd = &cobra.Command{
	Use:   "rating",
	Short: "Rate completed jobs",
}

var ratingPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show the rating a user owes before doing anything else",
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		user, err := requiredFlag(cmd, "user")
		if err != nil {
			return err
		}
		obligation, err := svc.Ratings.PendingRating(cmd.Context(), user)
		if err != nil {
			return errs.Wrap(err, "check pending rating")
		}
		return render(cmd, obligation, func(w io.Writer) error {
			if obligation == nil {
				return rows(w, []string{"pending", "none"})
			}
			return rows(w,
				[]string{"pending", "yes"},
				[]string{"role", string(obligation.Role)},
				[]string{"job", obligation.Job.ID + " " + obligation.Job.Title},
				[]string{"rate", obligation.CounterpartyID},
			)
		})
	}),
}

var ratingSubmitCmd = &cobra.Command{
	Use:   "submit <job-id>",
	Short: "Rate the other party of a completed job",
	Long: "Homeowners answer --on-time, --price-accurate and --would-hire-again; " +
		"contractors answer --clear-instructions, --payment-smooth and --professional.",
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		user, err := requiredFlag(cmd, "user")
		if err != nil {
			return err
		}
		role, _ := cmd.Flags().GetString("role")
		stars, _ := cmd.Flags().GetInt("stars")
		comment, _ := cmd.Flags().GetString("comment")

		rating, err := svc.Ratings.SubmitRating(cmd.Context(), ratinggate.SubmitRatingInput{
			JobID:       cmd.Flags().Arg(0),
			ActorUserID: user,
			Role:        role,
			Stars:       stars,
			Answers:     answersFromFlags(cmd),
			Comment:     comment,
		})
		if err != nil {
			return errs.Wrap(err, "submit rating")
		}
		return render(cmd, rating, func(w io.Writer) error {
			return rows(w,
				[]string{"id", rating.ID},
				[]string{"job", rating.JobID},
				[]string{"role", string(rating.RaterRole)},
				[]string{"stars", strings.Repeat("*", rating.Stars) + fmt.Sprintf(" (%d)", rating.Stars)},
			)
		})
	}),
}

var answerFlags = map[string]func(a *marketplace.Answers, v *bool){
	"on-time":            func(a *marketplace.Answers, v *bool) { a.OnTime = v },
	"price-accurate":     func(a *marketplace.Answers, v *bool) { a.PriceAccurate = v },
	"would-hire-again":   func(a *marketplace.Answers, v *bool) { a.WouldHireAgain = v },
	"clear-instructions": func(a *marketplace.Answers, v *bool) { a.ClearInstructions = v },
	"payment-smooth":     func(a *marketplace.Answers, v *bool) { a.PaymentSmooth = v },
	"professional":       func(a *marketplace.Answers, v *bool) { a.ProfessionalInteraction = v },
}

// answersFromFlags sets only the answers given on the command line, so a
// missing one stays nil and fails validation.
func answersFromFlags(cmd *cobra.Command) marketplace.Answers {
	var out marketplace.Answers
	for name, set := range answerFlags {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, _ := cmd.Flags().GetBool(name)
		set(&out, &v)
	}
	return out
}

func init() {
	rootCmd.AddCommand(ratingCmd)
	ratingCmd.AddCommand(ratingPendingCmd, ratingSubmitCmd)

	ratingPendingCmd.Flags().String("user", "", "User id")

	ratingSubmitCmd.Flags().String("user", "", "Rating user id")
	ratingSubmitCmd.Flags().String("role", "", "homeowner|contractor (inferred when empty)")
	ratingSubmitCmd.Flags().Int("stars", 0, "Stars 1..5")
	ratingSubmitCmd.Flags().String("comment", "", "Optional comment")
	for name := range answerFlags {
		ratingSubmitCmd.Flags().Bool(name, false, "Questionnaire answer")
	}
}
