package main

import (
	"context"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/domain/calendar"
	"github.com/spf13/cobra"
)

func newCandidatesCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Inspect the review candidate pool",
	}
	cmd.AddCommand(newCandidatesDueCommand(c), newCandidatesHistoryCommand(c))
	return cmd
}

func newCandidatesDueCommand(c *cli) *cobra.Command {
	var subject, mode, asOf string
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List open candidates due on or before a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var modeFilter *domain.Mode
			if mode != "" {
				m, err := domain.ParseMode(mode)
				if err != nil {
					return err
				}
				modeFilter = &m
			}

			var day calendar.Date
			if asOf != "" {
				d, err := calendar.Parse(asOf)
				if err != nil {
					return err
				}
				day = d
			} else {
				p, err := calendar.NewSystemProviderForZone(c.cfg.Scheduler.Timezone)
				if err != nil {
					return err
				}
				day = p.Today()
			}

			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				due, err := app.candidates.ListDue(ctx, subject, modeFilter, day)
				if err != nil {
					return err
				}
				if due == nil {
					due = []*domain.ReviewCandidate{}
				}
				return c.print(due)
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject to list")
	cmd.Flags().StringVar(&mode, "mode", "", modeUsage("restrict to "))
	cmd.Flags().StringVar(&asOf, "as-of", "", "YYYY-MM-DD (default: today in the configured timezone)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newCandidatesHistoryCommand(c *cli) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List every candidate row for an item, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				history, err := app.candidates.ListByTarget(ctx, target)
				if err != nil {
					return err
				}
				if history == nil {
					history = []*domain.ReviewCandidate{}
				}
				return c.print(history)
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "item id")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
